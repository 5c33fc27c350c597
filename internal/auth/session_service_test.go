package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
)

func openSessionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}))
	return db
}

func newSessionFixture(t *testing.T, clock func() time.Time) (*SessionService, *models.User) {
	t.Helper()

	db := openSessionTestDB(t)
	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "missiondesk", Clock: clock})
	require.NoError(t, err)

	svc, err := NewSessionService(db, jwtSvc, SessionConfig{Clock: clock})
	require.NoError(t, err)

	user := &models.User{Username: "leader", Email: "leader@agency.example", Password: "x", Role: "u2", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return svc, user
}

func TestSessionLifecycle(t *testing.T) {
	svc, user := newSessionFixture(t, nil)
	ctx := context.Background()

	pair, err := svc.CreateSession(ctx, user, SessionMetadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "u2", claims.Role)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// the old refresh token is no longer usable after rotation
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, svc.Revoke(ctx, claims.SessionID))
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRefreshExpired(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }
	svc, user := newSessionFixture(t, clock)
	ctx := context.Background()

	pair, err := svc.CreateSession(ctx, user, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(DefaultRefreshTokenTTL + time.Hour)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	pruned, err := svc.PruneExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

func TestJWTValidation(t *testing.T) {
	jwtSvc, err := NewJWTService(JWTConfig{Secret: "s", Issuer: "missiondesk"})
	require.NoError(t, err)

	token, err := jwtSvc.GenerateAccessToken(AccessTokenInput{UserID: "u-1", Role: "u3"})
	require.NoError(t, err)

	claims, err := jwtSvc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "u3", claims.Role)

	_, err = jwtSvc.ValidateAccessToken(token + "tampered")
	require.Error(t, err)

	other, err := NewJWTService(JWTConfig{Secret: "different", Issuer: "missiondesk"})
	require.NoError(t, err)
	_, err = other.ValidateAccessToken(token)
	require.Error(t, err)
}
