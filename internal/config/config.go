package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreKuzu   = "kuzu"
)

// Defaults applied after the file and the environment.
const (
	DefaultCacheSize = 64
	DefaultKuzuPath  = ".depsolve/graphs.kuzu"
)

// Config holds settings loaded from depsolve.yml, overridden by DEPSOLVE_*
// environment variables (a .env file next to the config is loaded first).
type Config struct {
	Store         string `yaml:"store,omitempty"`
	KuzuPath      string `yaml:"kuzuPath,omitempty"`
	Parallelism   int    `yaml:"parallelism,omitempty"`
	CacheSize     int    `yaml:"cacheSize,omitempty"`
	MaxExpansions int64  `yaml:"maxExpansions,omitempty"`
	Timeout       string `yaml:"timeout,omitempty"`
	Aggregator    string `yaml:"aggregator,omitempty"`
	Verbose       bool   `yaml:"verbose,omitempty"`
}

// Load attempts to read depsolve.yml or depsolve.yaml from the given
// directory. A missing file is not an error: the environment and defaults
// still apply.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg := &Config{}
	for _, name := range []string{"depsolve.yml", "depsolve.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
		break
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("DEPSOLVE_STORE"); v != "" {
		c.Store = strings.ToLower(v)
	}
	if v := env("DEPSOLVE_KUZU_PATH"); v != "" {
		c.KuzuPath = v
	}
	if v := env("DEPSOLVE_TIMEOUT"); v != "" {
		c.Timeout = v
	}
	if v := env("DEPSOLVE_AGGREGATOR"); v != "" {
		c.Aggregator = v
	}
	if v := env("DEPSOLVE_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DEPSOLVE_PARALLELISM: %w", err)
		}
		c.Parallelism = n
	}
	if v := env("DEPSOLVE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DEPSOLVE_CACHE_SIZE: %w", err)
		}
		c.CacheSize = n
	}
	if v := env("DEPSOLVE_MAX_EXPANSIONS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: DEPSOLVE_MAX_EXPANSIONS: %w", err)
		}
		c.MaxExpansions = n
	}
	if v := env("DEPSOLVE_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DEPSOLVE_VERBOSE: %w", err)
		}
		c.Verbose = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.Store == StoreKuzu && c.KuzuPath == "" {
		c.KuzuPath = DefaultKuzuPath
	}
	if c.Parallelism == 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreKuzu:
	default:
		return fmt.Errorf("config: unknown store %q (want %s or %s)", c.Store, StoreMemory, StoreKuzu)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("config: parallelism must be >= 0, got %d", c.Parallelism)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("config: cacheSize must be >= 0, got %d", c.CacheSize)
	}
	if c.MaxExpansions < 0 {
		return fmt.Errorf("config: maxExpansions must be >= 0, got %d", c.MaxExpansions)
	}
	if _, err := c.SearchTimeout(); err != nil {
		return err
	}
	return nil
}

// SearchTimeout parses Timeout. Empty means no limit.
func (c *Config) SearchTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: timeout must be >= 0, got %s", d)
	}
	return d, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
