package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/oversightlab/missiondesk/internal/auth"
	"github.com/oversightlab/missiondesk/internal/database/testutil"
	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/internal/services"
)

func TestRunOnceSweepsExpiredState(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)
	invitations, err := services.NewInvitationService(db)
	require.NoError(t, err)

	user := &models.User{Username: "x", Email: "x@agency.example", Password: "pw"}
	require.NoError(t, db.Create(user).Error)
	org := &models.Organization{Name: "Direction Nord"}
	require.NoError(t, db.Create(org).Error)

	expired := &models.Session{
		UserID:           user.ID,
		RefreshTokenHash: "stale-hash",
		ExpiresAt:        time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(expired).Error)

	overdue := &models.Invitation{
		Email:          "late@agency.example",
		OrganizationID: org.ID,
		OrgRole:        "u1",
		Status:         models.InvitationPending,
		ExpiresAt:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(overdue).Error)

	runner := NewRunner(sessions, invitations, nil)
	require.NoError(t, runner.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.Zero(t, sessionCount)

	var invitation models.Invitation
	require.NoError(t, db.First(&invitation, "id = ?", overdue.ID).Error)
	require.Equal(t, models.InvitationCancelled, invitation.Status)
}

func TestStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	runner := NewRunner(sessions, nil, nil)
	require.NoError(t, runner.Start())
	<-runner.Stop().Done()
}
