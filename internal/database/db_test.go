package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oversightlab/missiondesk/internal/models"
)

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestMigrateAndSeed(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)

	require.NoError(t, AutoMigrateAndSeed(db))

	var admin models.User
	require.NoError(t, db.First(&admin, "username = ?", DefaultAdminUsername).Error)
	require.Equal(t, "u4", admin.Role)
	require.NotEqual(t, "ChangeMe!123", admin.Password)

	// seeding twice must not duplicate the admin
	require.NoError(t, SeedData(db))
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "mission", Name: "missiondesk", Password: "pw"})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "dbname=missiondesk")
	require.Contains(t, dsn, "sslmode=disable")

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "mission", Password: "pw", Name: "missiondesk"})
	require.NoError(t, err)
	require.Contains(t, dsn, "mission:pw@tcp(127.0.0.1:3306)/missiondesk")
	require.Contains(t, dsn, "parseTime=True")

	_, err = buildMySQLDSN(Config{User: "mission"})
	require.Error(t, err)
}
