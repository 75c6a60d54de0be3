package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "plugin.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestParseFileValid(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name = "weather"
description = "fetches weather"
version = "1.2.3"

[permissions]
filesystem = true
filesystem_read_paths = ["data"]
network = ["api.example.com"]

[limits]
max_memory_mb = 32
timeout_secs = 5
max_output_bytes = 4096
`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data"), 0755))

	m, err := ParseFile(path, dir)
	require.NoError(t, err)
	assert.Equal(t, "weather", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, dir, m.Root)
	assert.True(t, m.Permissions.Filesystem)
	assert.Equal(t, []string{"api.example.com"}, m.Permissions.Network)
}

func TestParseFileInvalidVersion(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name = "broken"
version = "not-a-semver"

[limits]
timeout_secs = 1
max_output_bytes = 1
`)
	_, err := ParseFile(path, dir)
	assert.Error(t, err)
}

func TestParseFileMissingName(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
version = "1.0.0"

[limits]
timeout_secs = 1
max_output_bytes = 1
`)
	_, err := ParseFile(path, dir)
	assert.Error(t, err)
}

func TestParseFileFilesystemPathsWithoutFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name = "leaky"
version = "1.0.0"

[permissions]
filesystem_read_paths = ["data"]

[limits]
timeout_secs = 1
max_output_bytes = 1
`)
	_, err := ParseFile(path, dir)
	assert.Error(t, err)
}

func TestParseFileRejectsZeroLimits(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name = "zero-limits"
version = "1.0.0"

[limits]
timeout_secs = 0
max_output_bytes = 0
`)
	_, err := ParseFile(path, dir)
	assert.Error(t, err)
}

func TestCapabilitiesProjection(t *testing.T) {
	m := &Manifest{
		Name: "probe",
		Permissions: Permissions{
			Filesystem:           true,
			FilesystemReadPaths:  []string{"in"},
			FilesystemWritePaths: []string{"out"},
		},
	}
	caps := m.Capabilities()
	require.NotNil(t, caps.Filesystem)
	assert.Equal(t, []string{"in"}, caps.Filesystem.ReadPaths)
	assert.Equal(t, []string{"out"}, caps.Filesystem.WritePaths)
	assert.Nil(t, caps.Network)
	assert.Nil(t, caps.EnvVars)
}

func TestCapabilitiesOmitUnusedPermissions(t *testing.T) {
	m := &Manifest{Name: "quiet"}
	caps := m.Capabilities()
	assert.Nil(t, caps.Filesystem)
	assert.Nil(t, caps.Network)
	assert.Nil(t, caps.EnvVars)
}
