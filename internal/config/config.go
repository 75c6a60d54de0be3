// Package config loads OpenCrust's configuration: a typed struct
// populated through Viper's layered defaults → file → environment
// precedence, with BurntSushi/toml used directly wherever a single file
// needs to be read or written without going through Viper (plugin
// manifests, config-watch reloads).
package config

// Config is OpenCrust's complete runtime configuration. Both struct tags
// are populated: mapstructure for Viper's layered Load, toml for
// configwatch's direct BurntSushi/toml decode on a hot reload.
type Config struct {
	DataDir     string            `mapstructure:"data_dir" toml:"data_dir"`
	Database    DatabaseConfig    `mapstructure:"database" toml:"database"`
	Server      ServerConfig      `mapstructure:"server" toml:"server"`
	Plugin      PluginConfig      `mapstructure:"plugin" toml:"plugin"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler" toml:"scheduler"`
	Vectorstore VectorstoreConfig `mapstructure:"vectorstore" toml:"vectorstore"`
}

// DatabaseConfig configures the session store's SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"` // default: "<data_dir>/opencrust.db"
}

// ServerConfig configures the WebSocket gateway's HTTP listener.
type ServerConfig struct {
	Port           int      `mapstructure:"port" toml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
}

// PluginConfig configures the plugin sandbox's manifest discovery.
type PluginConfig struct {
	Enabled []string `mapstructure:"enabled" toml:"enabled"` // whitelist; empty means every discovered plugin is enabled
	Paths   []string `mapstructure:"paths" toml:"paths"`     // manifest search directories
}

// SchedulerConfig configures the heartbeat scheduler's limits.
type SchedulerConfig struct {
	MaxPendingTasksPerSession int `mapstructure:"max_pending_tasks_per_session" toml:"max_pending_tasks_per_session"`
	PollIntervalSeconds       int `mapstructure:"poll_interval_seconds" toml:"poll_interval_seconds"`
}

// VectorstoreConfig configures the embeddings store backing retrieval.
type VectorstoreConfig struct {
	Path string `mapstructure:"path" toml:"path"` // default: "<data_dir>/vectors.db"
}

const (
	// DefaultServerPort is the gateway's listen port when unconfigured.
	DefaultServerPort = 8730

	// DefaultDirPermissions is used for directories created on the
	// user's behalf.
	DefaultDirPermissions = 0755
	// DefaultFilePermissions is used for files written on the user's
	// behalf.
	DefaultFilePermissions = 0644
)
