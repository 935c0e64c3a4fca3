package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	require.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.NoTUI)
	require.True(t, filepath.IsAbs(cfg.StateDir))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TASKPAL_API_URL", "https://api.example.com/")
	t.Setenv("TASKPAL_LOG_LEVEL", "debug")
	t.Setenv("TASKPAL_HTTP_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.APIBaseURL, "trailing slash is stripped")
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := ExpandPath("~/.taskpal")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".taskpal"), dir)

	plain, err := ExpandPath("/tmp/x")
	require.NoError(t, err)
	require.Equal(t, "/tmp/x", plain)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{StateDir: "/srv/taskpal"}
	require.Equal(t, "/srv/taskpal/credentials.json", cfg.CredentialsPath())
	require.Equal(t, "/srv/taskpal/taskpal-debug.log", cfg.LogPath())
	require.Equal(t, "/srv/taskpal/history", cfg.HistoryPath())
}
