package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileLoggerWritesTaggedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	root, err := NewFileLogger(path, LevelDebug)
	require.NoError(t, err)
	defer func() { _ = root.Close() }()

	logger := root.Component("SessionStore")
	logger.Info("state -> %s", "authenticated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[INFO] [SessionStore] state -> authenticated")
}

func TestFileLoggerRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	root, err := NewFileLogger(path, LevelWarn)
	require.NoError(t, err)
	defer func() { _ = root.Close() }()

	root.Debug("hidden")
	root.Info("hidden too")
	root.Error("visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden")
	require.True(t, strings.Contains(string(data), "visible"))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("debug"))
	require.Equal(t, LevelWarn, ParseLevel("WARNING"))
	require.Equal(t, LevelInfo, ParseLevel(""))
	require.Equal(t, LevelInfo, ParseLevel("bogus"))
}
