package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/opencrust/opencrust/errors"
)

// Load reads OpenCrust's configuration from (in ascending precedence)
// built-in defaults, an optional config file, and environment
// variables prefixed OPENCRUST_.
//
// configPath may be empty, in which case Load looks for opencrust.toml
// in the current directory and falls back to defaults-only if absent.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("OPENCRUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)
	SetDefaults(v)

	if configPath == "" {
		configPath = FindProjectConfig()
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapKind(err, errors.KindConfig, "read config file "+configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapKind(err, errors.KindConfig, "decode config")
	}

	resolvePaths(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindProjectConfig looks for opencrust.toml in the working directory.
// It does not walk up the directory tree or merge system/user-level
// files: OpenCrust expects a single project-local config, matching its
// single-operator deployment model. Returns "" if no such file exists,
// which Load treats as defaults-only.
func FindProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "opencrust.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// resolvePaths fills in data-directory-relative defaults for any path
// the caller left unset, and ensures the data directory exists.
func resolvePaths(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(cfg.DataDir, "opencrust.db")
	}
	if cfg.Vectorstore.Path == "" {
		cfg.Vectorstore.Path = filepath.Join(cfg.DataDir, "vectors.db")
	}
	os.MkdirAll(cfg.DataDir, DefaultDirPermissions)
}
