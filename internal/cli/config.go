package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the depfuse configuration, loaded from a TOML file.
// Every field has a sensible default so running without a config file works.
type Config struct {
	Analyze AnalyzeConfig `toml:"analyze"`
	Cache   CacheConfig   `toml:"cache"`
	Store   StoreConfig   `toml:"store"`
	Serve   ServeConfig   `toml:"serve"`
}

// AnalyzeConfig controls the analysis runner.
type AnalyzeConfig struct {
	// Workers bounds parallel project analyses. Zero means GOMAXPROCS.
	Workers int `toml:"workers"`
}

// CacheConfig selects the metadata cache backend.
type CacheConfig struct {
	// Backend is one of "file", "redis", or "none".
	Backend string `toml:"backend"`
	// Dir overrides the file cache directory.
	Dir string `toml:"dir"`
	// TTLHours is the metadata entry lifetime. Zero means 24 hours.
	TTLHours int `toml:"ttl_hours"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// StoreConfig selects where analysis runs are persisted.
type StoreConfig struct {
	// Backend is one of "none" or "mongo".
	Backend    string `toml:"backend"`
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServeConfig controls the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

func defaultConfig() *Config {
	return &Config{
		Analyze: AnalyzeConfig{},
		Cache:   CacheConfig{Backend: "file"},
		Store:   StoreConfig{Backend: "none"},
		Serve:   ServeConfig{Addr: ":8420"},
	}
}

// loadConfig reads the config file at path, or the default location if path
// is empty. A missing file is not an error; defaults apply.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "depfuse", "config.toml")
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// TTL returns the configured metadata cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// cacheDir returns the directory used by the file cache backend.
func (c CacheConfig) cacheDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return filepath.Join(base, "depfuse"), nil
}
