package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("server:\n  port: 9191\n"), 0o600))

	// directory path
	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)

	// file path resolves to its directory
	cfg, err = loadApplicationConfig(cfgFile)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)

	// missing path errors out
	_, err = loadApplicationConfig(filepath.Join(dir, "nope"))
	require.Error(t, err)
}
