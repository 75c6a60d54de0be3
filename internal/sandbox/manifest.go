// Package sandbox parses plugin manifests and runs a plugin's WebAssembly
// module inside a wazero-backed sandbox with enforced filesystem, network,
// environment, output, memory, and time limits.
package sandbox

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/opencrust/opencrust/errors"
)

// Permissions is a plugin's declared access requests. The sandbox runtime
// treats everything not listed here as denied.
type Permissions struct {
	Filesystem           bool     `toml:"filesystem"`
	FilesystemReadPaths  []string `toml:"filesystem_read_paths"`
	FilesystemWritePaths []string `toml:"filesystem_write_paths"`
	Network              []string `toml:"network"`
	EnvVars              []string `toml:"env_vars"`
}

// Limits bounds a single execution of a plugin's module.
type Limits struct {
	MaxMemoryMB    int `toml:"max_memory_mb"`
	TimeoutSecs    int `toml:"timeout_secs"`
	MaxOutputBytes int `toml:"max_output_bytes"`
}

// Manifest is a plugin's full descriptor: identity plus declared
// permissions and limits. Parsed once at load time; never mutated by the
// runtime.
type Manifest struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Version     string `toml:"version"`

	Permissions Permissions `toml:"permissions"`
	Limits      Limits      `toml:"limits"`

	// Root is the plugin's directory, set by ParseFile rather than the
	// descriptor itself — filesystem scoping resolves relative paths
	// against it.
	Root string `toml:"-"`
}

// Capabilities is the reported, normalized view of a manifest's
// permissions: each field is present only if the underlying permission is
// actually exercised, so a caller asking "can this plugin touch the
// network" gets a clean yes/no plus the allowlist, not a raw permissions
// struct to reinterpret.
type Capabilities struct {
	Filesystem *FilesystemCapability `json:"filesystem,omitempty"`
	Network    []string              `json:"network,omitempty"`
	EnvVars    []string              `json:"env_vars,omitempty"`
}

// FilesystemCapability describes the read/write paths a plugin may touch.
type FilesystemCapability struct {
	ReadPaths  []string `json:"read_paths,omitempty"`
	WritePaths []string `json:"write_paths,omitempty"`
}

// Capabilities projects a manifest's raw permissions into the reported
// capability set: filesystem is reported iff the flag is set, network iff
// the allowlist is non-empty, env-vars iff its allowlist is non-empty.
func (m *Manifest) Capabilities() Capabilities {
	var caps Capabilities

	if m.Permissions.Filesystem {
		caps.Filesystem = &FilesystemCapability{
			ReadPaths:  m.Permissions.FilesystemReadPaths,
			WritePaths: m.Permissions.FilesystemWritePaths,
		}
	}
	if len(m.Permissions.Network) > 0 {
		caps.Network = m.Permissions.Network
	}
	if len(m.Permissions.EnvVars) > 0 {
		caps.EnvVars = m.Permissions.EnvVars
	}

	return caps
}

// Validate checks the manifest's invariants: a well-formed semver version,
// sane limits, and no conflicting filesystem declaration.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return errors.NewKind(errors.KindPlugin, "manifest missing name")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return errors.WrapKind(err, errors.KindPlugin, "manifest has invalid version")
	}
	if !m.Permissions.Filesystem && (len(m.Permissions.FilesystemReadPaths) > 0 || len(m.Permissions.FilesystemWritePaths) > 0) {
		return errors.NewKind(errors.KindPlugin, "filesystem paths configured but filesystem permission is false")
	}

	// Reject limits below the minimum the runtime would otherwise clamp
	// them to at execution time, so a manifest that asks for 0 is caught
	// here rather than silently becoming 1 deep inside a run.
	if m.Limits.MaxOutputBytes < 1 {
		return errors.NewKind(errors.KindPlugin, "max_output_bytes must be at least 1")
	}
	if m.Limits.TimeoutSecs < 1 {
		return errors.NewKind(errors.KindPlugin, "timeout_secs must be at least 1")
	}

	return nil
}

// ParseFile reads and validates the manifest at path, setting Root to dir.
func ParseFile(path, dir string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindPlugin, "read manifest")
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapKind(err, errors.KindPlugin, "parse manifest")
	}
	m.Root = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
