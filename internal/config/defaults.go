package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SetDefaults configures every configuration option's default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())

	v.SetDefault("database.path", "")

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	v.SetDefault("plugin.enabled", []string{})
	v.SetDefault("plugin.paths", []string{})

	v.SetDefault("scheduler.max_pending_tasks_per_session", 5)
	v.SetDefault("scheduler.poll_interval_seconds", 1)

	v.SetDefault("vectorstore.path", "")
}

// BindSensitiveEnvVars explicitly binds values an operator would expect
// to override via environment rather than a checked-in config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("data_dir", "OPENCRUST_DATA_DIR")
	v.BindEnv("database.path", "OPENCRUST_DATABASE_PATH")
	v.BindEnv("server.port", "OPENCRUST_SERVER_PORT")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".opencrust", "data")
	}
	return filepath.Join(home, ".opencrust", "data")
}
