package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/oversightlab/missiondesk/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, "/srv/missiondesk/uploads", cfg.Storage.UploadsDir)
	require.Equal(t, "/files", cfg.Storage.BaseURL)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "missiondesk-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, 45*time.Second, cfg.Jobs.OutboxInterval)
	require.Equal(t, "@daily", cfg.Jobs.InvitationSchedule)
	// untouched keys keep their defaults
	require.Equal(t, "@hourly", cfg.Jobs.SessionSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/uploads", cfg.Storage.UploadsDir)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 30*time.Second, cfg.Jobs.OutboxInterval)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret: "secret",
			Issuer: "issuer",
			TTL:    30 * time.Minute,
		},
		Session: SessionSettings{
			RefreshTTL: 10 * time.Hour,
		},
	}

	require.Equal(t, iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	require.Equal(t, 10*time.Hour, cfg.SessionServiceConfig().RefreshTokenTTL)
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	require.Equal(t, iauth.DefaultAccessTokenTTL, cfg.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, iauth.DefaultRefreshTokenTTL, cfg.SessionServiceConfig().RefreshTokenTTL)
}

func TestDatabaseConfigAdapter(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "postgres",
		Postgres: DBAuthConfig{
			Host:     "db.internal",
			Port:     5432,
			Database: "missions",
			Username: "svc",
			Password: "pw",
		},
	}

	settings := cfg.DatabaseSettings()
	require.Equal(t, "postgres", settings.Driver)
	require.Equal(t, "db.internal", settings.Host)
	require.Equal(t, "missions", settings.Name)
	require.Equal(t, "svc", settings.User)
}
