package reverie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reverie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
useCacheableRoute: true
cacheableRoute: /cache
prefetchConcurrency: 0
width: 800
`), 0o644))
	t.Setenv("REVERIE_WIDTH", "1024")
	t.Setenv("REVERIE_DEBUG", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.UseCacheableRoute)
	assert.Equal(t, "/cache", cfg.CacheableRoute)
	assert.Equal(t, "url", cfg.CacheableRouteParam)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 1, cfg.PrefetchConcurrency)

	assert.Equal(t, CacheablePolicy{Enabled: true, Route: "/cache", Param: "url"}, cfg.Cacheable())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: [1, 2]"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	t.Setenv("REVERIE_HEIGHT", "tall")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
