package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/config"
)

func TestNew_FileOutputIsClosable(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "app.log")
	log, closer, err := New(config.LoggerConfig{Level: "info", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Named("test").Infow("hello", "user_id", "u1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"logger":"test"`)

	// The file handle is released; a second close reports it.
	assert.Error(t, closer.Close())
}

func TestNew_StdoutCloserIsNoop(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, closer, err := New(config.LoggerConfig{OutputPath: "stdout"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	assert.NoError(t, closer.Close())
}

func TestNew_UnwritablePath(t *testing.T) {
	_, _, err := New(config.LoggerConfig{OutputPath: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
