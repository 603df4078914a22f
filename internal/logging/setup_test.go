package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobalLevel(t *testing.T) {
	t.Helper()
	previous := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })
}

func TestNew_ConsoleOnly(t *testing.T) {
	restoreGlobalLevel(t)

	_, cleanup, err := New(Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	restoreGlobalLevel(t)

	_, cleanup, err := New(Config{Level: "loud"})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetLevel(t *testing.T) {
	restoreGlobalLevel(t)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	SetLevel("warn")
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	assert.Equal(t, zerolog.DebugLevel, SetLevel("debug"))
	logger.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_FileLogging(t *testing.T) {
	restoreGlobalLevel(t)
	path := filepath.Join(t.TempDir(), "logs", "dispatch.log")

	logger, cleanup, err := New(Config{
		Level:  "info",
		Format: "json",
		File:   FileConfig{Enabled: true, Path: path, MaxSize: 1},
	})
	require.NoError(t, err)

	logger.Info().Msg("hello")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestNew_FileLoggingRequiresPath(t *testing.T) {
	_, _, err := New(Config{File: FileConfig{Enabled: true}})
	assert.Error(t, err)
}

func TestCtxWithFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithCtx(context.Background(), zerolog.New(&buf))

	ctx = CtxWithFields(ctx, map[string]any{FieldLayer: "usecase", FieldEntityID: 7})
	FromCtx(ctx).Info().Msg("scoped")

	assert.Contains(t, buf.String(), `"layer":"usecase"`)
	assert.Contains(t, buf.String(), `"entity_id":7`)
}

func TestFromCtx_WithoutLogger(t *testing.T) {
	logger := FromCtx(context.Background())
	require.NotNil(t, logger)
	logger.Info().Msg("dropped")
}
