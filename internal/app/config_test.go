package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	_, cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Watcher.Enabled)
	assert.Equal(t, "1.41", cfg.Watcher.MinAPIVersion)
	assert.Equal(t, 10*time.Second, cfg.Watcher.PollInterval)
	assert.Equal(t, 100, cfg.Events.BufferSize)
	assert.Equal(t, filepath.Join(cfg.Server.DataDir, "dispatch.db"), cfg.DatabasePath())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  data_dir: /srv/dispatch
database:
  path: /tmp/other.db
watcher:
  poll_interval: 30s
logging:
  file:
    enabled: true
`), 0600))

	v, cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, v.ConfigFileUsed())
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath())
	assert.Equal(t, 30*time.Second, cfg.Watcher.PollInterval)
	assert.Equal(t, "/srv/dispatch/logs/dispatch.log", cfg.LogFilePath())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISPATCH_SERVER_PORT", "9191")
	t.Setenv("DISPATCH_WATCHER_ENABLED", "false")
	t.Setenv("DISPATCH_SERVER_ADMIN_TOKEN", "s3cret")

	_, cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.False(t, cfg.Watcher.Enabled)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
