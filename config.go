package reverie

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds engine-wide settings. Zero values are filled from
// DefaultConfig by LoadConfig.
type Config struct {
	// Cacheable-route policy: media URLs are rewritten to go through Route
	// so a caching layer can key on one endpoint.
	UseCacheableRoute   bool   `yaml:"useCacheableRoute" env:"REVERIE_USE_CACHEABLE_ROUTE"`
	CacheableRoute      string `yaml:"cacheableRoute" env:"REVERIE_CACHEABLE_ROUTE"`
	CacheableRouteParam string `yaml:"cacheableRouteParam" env:"REVERIE_CACHEABLE_ROUTE_PARAM"`

	// PrefetchConcurrency bounds concurrent fetches in SrcManager.Prefetch.
	PrefetchConcurrency int `yaml:"prefetchConcurrency" env:"REVERIE_PREFETCH_CONCURRENCY"`

	Debug bool `yaml:"debug" env:"REVERIE_DEBUG"`

	// Window settings used by the ebiten host.
	Title  string `yaml:"title" env:"REVERIE_TITLE"`
	Width  int    `yaml:"width" env:"REVERIE_WIDTH"`
	Height int    `yaml:"height" env:"REVERIE_HEIGHT"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		UseCacheableRoute:   false,
		CacheableRoute:      "/api/cache",
		CacheableRouteParam: "url",
		PrefetchConcurrency: 4,
		Title:               "reverie",
		Width:               1280,
		Height:              720,
	}
}

// LoadConfig starts from DefaultConfig, overlays the YAML file at path (if
// path is non-empty) and then any REVERIE_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: parse env: %w", err)
	}
	if cfg.PrefetchConcurrency <= 0 {
		cfg.PrefetchConcurrency = 1
	}
	return cfg, nil
}

// Cacheable extracts the cacheable-route policy.
func (c Config) Cacheable() CacheablePolicy {
	return CacheablePolicy{
		Enabled: c.UseCacheableRoute,
		Route:   c.CacheableRoute,
		Param:   c.CacheableRouteParam,
	}
}
