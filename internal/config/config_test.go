package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithoutConfigFile(t *testing.T) {
	t.Setenv("OPENCRUST_DATA_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Scheduler.MaxPendingTasksPerSession)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.NotEmpty(t, cfg.Vectorstore.Path)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opencrust.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "`+filepath.Join(dir, "data")+`"

[server]
port = 9999

[scheduler]
max_pending_tasks_per_session = 3
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Scheduler.MaxPendingTasksPerSession)
	assert.Equal(t, filepath.Join(dir, "data", "opencrust.db"), cfg.Database.Path)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opencrust.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9999
`), 0644))

	t.Setenv("OPENCRUST_SERVER_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 70000}, Scheduler: SchedulerConfig{MaxPendingTasksPerSession: 1, PollIntervalSeconds: 1}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveSchedulerLimits(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}, Scheduler: SchedulerConfig{MaxPendingTasksPerSession: 0, PollIntervalSeconds: 1}}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}, Scheduler: SchedulerConfig{MaxPendingTasksPerSession: 5, PollIntervalSeconds: 1}}
	assert.NoError(t, cfg.Validate())
}
