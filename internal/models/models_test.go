package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMissionStatusValid(t *testing.T) {
	for _, status := range []MissionStatus{MissionDraft, MissionPending, MissionCompleted, MissionRejected} {
		require.True(t, status.Valid(), status)
	}
	require.False(t, MissionStatus("ARCHIVED").Valid())
	require.False(t, MissionStatus("draft").Valid())
}

func TestUserFullName(t *testing.T) {
	require.Equal(t, "jdoe", (&User{Username: "jdoe"}).FullName())
	require.Equal(t, "Jamie", (&User{Username: "jdoe", FirstName: "Jamie"}).FullName())
	require.Equal(t, "Jamie Doe", (&User{FirstName: "Jamie", LastName: "Doe"}).FullName())
}

func TestInvitationExpired(t *testing.T) {
	now := time.Now()
	inv := Invitation{ExpiresAt: now.Add(time.Hour)}
	require.False(t, inv.Expired(now))
	require.True(t, inv.Expired(now.Add(2*time.Hour)))
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Hour)}
	require.True(t, s.Active(now))

	revoked := now
	s.RevokedAt = &revoked
	require.False(t, s.Active(now))

	s.RevokedAt = nil
	require.False(t, s.Active(now.Add(2*time.Hour)))
}
