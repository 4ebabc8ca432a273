package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	return dir
}

func TestDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data", AppName, "prompts.json"), cfg.Storage.Path)
	assert.True(t, cfg.Sync.Watch)
	assert.Equal(t, time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.Debounce)
	assert.Equal(t, 0, cfg.Log.Verbosity)
	assert.Equal(t, "127.0.0.1:8080", cfg.API.Addr())
}

func TestConfigFileInConfigDir(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, "config", AppName)
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(`
storage:
  path: /srv/prompts.json
sync:
  watch: false
  poll_interval: 5s
api:
  port: 9090
`), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/prompts.json", cfg.Storage.Path)
	assert.False(t, cfg.Sync.Watch)
	assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 9090, cfg.API.Port)
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PROMPT_MANAGER_STORAGE_PATH", "/tmp/env.json")
	t.Setenv("PROMPT_MANAGER_LOG_VERBOSITY", "2")
	t.Setenv("PROMPT_MANAGER_SYNC_DEBOUNCE", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.json", cfg.Storage.Path)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.Debounce)
}

func TestExplicitFileMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("api:\n  port: 70000\n"), 0644))

	_, err := Load(file)
	assert.ErrorContains(t, err, "api.port")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "p.json"), expandHome("~/p.json"))
	assert.Equal(t, "/abs/p.json", expandHome("/abs/p.json"))
}
