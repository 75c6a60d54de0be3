package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMountsNoFilesystemPermission(t *testing.T) {
	m := &Manifest{Permissions: Permissions{Filesystem: false}}
	mounts, err := resolveMounts(m)
	require.NoError(t, err)
	assert.Nil(t, mounts)
}

func TestResolveMountsDefaultsToReadOnlyRoot(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Root: dir, Permissions: Permissions{Filesystem: true}}

	mounts, err := resolveMounts(m)
	require.NoError(t, err)
	require.Len(t, mounts, 1)
	assert.False(t, mounts[0].writable)

	canonicalDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, canonicalDir, mounts[0].hostPath)
}

func TestResolveMountsReadAndWritePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "in"), 0755))

	m := &Manifest{
		Root: dir,
		Permissions: Permissions{
			Filesystem:           true,
			FilesystemReadPaths:  []string{"in"},
			FilesystemWritePaths: []string{"out"},
		},
	}

	mounts, err := resolveMounts(m)
	require.NoError(t, err)
	require.Len(t, mounts, 2)
	assert.False(t, mounts[0].writable)
	assert.True(t, mounts[1].writable)

	// Write path should have been created since it didn't exist.
	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.NoError(t, statErr)
}

func TestResolveMountRejectsAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	_, err := resolveMount(dir, "/etc/passwd", false)
	assert.Error(t, err)
}

func TestResolveMountRejectsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	_, err := resolveMount(dir, "", false)
	assert.Error(t, err)
}

func TestResolveMountRejectsEscapingPath(t *testing.T) {
	dir := t.TempDir()
	_, err := resolveMount(dir, "../../etc", false)
	assert.Error(t, err)
}

func TestResolveMountRejectsMissingReadPath(t *testing.T) {
	dir := t.TempDir()
	_, err := resolveMount(dir, "does-not-exist", false)
	assert.Error(t, err)
}

func TestMountGuestPath(t *testing.T) {
	assert.Equal(t, "/mnt0", mountGuestPath(0))
	assert.Equal(t, "/mnt1", mountGuestPath(1))
	assert.Equal(t, "/mnt12", mountGuestPath(12))
}
