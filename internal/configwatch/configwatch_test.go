package configwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name string `yaml:"name" toml:"name"`
	Port int    `yaml:"port" toml:"port"`
}

func TestDecodeFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: opencrust\nport: 8080\n"), 0644))

	var cfg testConfig
	require.NoError(t, DecodeFile(path, &cfg))
	assert.Equal(t, "opencrust", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
}

func TestDecodeFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"opencrust\"\nport = 9090\n"), 0644))

	var cfg testConfig
	require.NoError(t, DecodeFile(path, &cfg))
	assert.Equal(t, "opencrust", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
}

func TestDecodeFileUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("name=opencrust"), 0644))

	var cfg testConfig
	assert.Error(t, DecodeFile(path, &cfg))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: first\nport: 1\n"), 0644))

	w, err := New(path, func() any { return &testConfig{} })
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *testConfig, 1)
	w.OnReload(func(v any) error {
		reloaded <- v.(*testConfig)
		return nil
	})
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("name: second\nport: 2\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "second", cfg.Name)
		assert.Equal(t, 2, cfg.Port)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: first\nport: 1\n"), 0644))

	w, err := New(path, func() any { return &testConfig{} })
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *testConfig, 1)
	w.OnReload(func(v any) error {
		reloaded <- v.(*testConfig)
		return nil
	})
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0644))

	select {
	case <-reloaded:
		t.Fatal("reload triggered by unrelated file write")
	case <-time.After(700 * time.Millisecond):
	}
}
