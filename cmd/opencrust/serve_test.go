package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newOriginRequest(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginSetEmptyAllowsEverything(t *testing.T) {
	s := newOriginSet(nil)
	assert.True(t, s.check(newOriginRequest("https://anything.example")))
}

func TestOriginSetRejectsUnlistedOrigin(t *testing.T) {
	s := newOriginSet([]string{"https://allowed.example"})
	assert.True(t, s.check(newOriginRequest("https://allowed.example")))
	assert.False(t, s.check(newOriginRequest("https://evil.example")))
}

func TestOriginSetReplaceIsLiveForSubsequentChecks(t *testing.T) {
	s := newOriginSet([]string{"https://old.example"})
	require.False(t, s.check(newOriginRequest("https://new.example")))

	s.replace([]string{"https://new.example"})
	assert.True(t, s.check(newOriginRequest("https://new.example")))
	assert.False(t, s.check(newOriginRequest("https://old.example")))
}

func TestWatchConfigFileNoPathIsNoOp(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	origins := newOriginSet([]string{"https://only.example"})
	w, err := watchConfigFile("", origins, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestWatchConfigFileHotReloadsAllowedOrigins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opencrust.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
allowed_origins = ["https://first.example"]
`), 0644))

	origins := newOriginSet([]string{"https://old.example"})
	w, err := watchConfigFile(path, origins, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NotNil(t, w)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`
[server]
allowed_origins = ["https://second.example"]
`), 0644))

	require.Eventually(t, func() bool {
		return origins.check(newOriginRequest("https://second.example"))
	}, 2*time.Second, 20*time.Millisecond)
}
