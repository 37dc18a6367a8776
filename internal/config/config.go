// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	APIKey                string        `env:"PERPLEXITY_API_KEY"`
	BaseURL               string        `env:"PERPLEXITY_BASE_URL" envDefault:"https://api.perplexity.ai"`
	Model                 string        `env:"PERPLEXITY_MODEL" envDefault:"sonar"`
	DatabasePath          string        `env:"DATABASE_PATH" envDefault:"rtp_cache.db"`
	OutputPath            string        `env:"OUTPUT_PATH" envDefault:"rtp_results.csv"`
	CacheBackend          string        `env:"CACHE_BACKEND" envDefault:"sqlite"`
	RedisAddr             string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword         string        `env:"REDIS_PASSWORD"`
	RedisPrefix           string        `env:"REDIS_PREFIX" envDefault:"rtp"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile               string        `env:"LOG_FILE"`
	MaxRequestsPerMin     int           `env:"MAX_REQUESTS_PER_MIN" envDefault:"50"`
	MaxConcurrentRequests int           `env:"MAX_CONCURRENT_REQUESTS" envDefault:"5"`
	RedisDB               int           `env:"REDIS_DB" envDefault:"0"`
	CacheTimeout          time.Duration `env:"CACHE_TIMEOUT" envDefault:"5s"`
	HTTPTimeout           time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	Notify                bool          `env:"NOTIFY" envDefault:"false"`
}

// Load reads configuration from .env files and environment variables.
// The API key is not required here; callers decide how to report it missing.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.UsesDatabase() {
		if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// UsesDatabase reports whether the sqlite file is opened. It holds the cache
// for the sqlite backend and the API call log for both persistent backends.
func (c *Config) UsesDatabase() bool {
	return c.CacheBackend != BackendMemory
}

// Validate checks limits and enumerations.
func (c *Config) Validate() error {
	if c.MaxRequestsPerMin <= 0 {
		return fmt.Errorf("MAX_REQUESTS_PER_MIN must be positive, got %d", c.MaxRequestsPerMin)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must be positive, got %d", c.MaxConcurrentRequests)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("PERPLEXITY_MODEL must not be empty")
	}
	switch c.CacheBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want sqlite, redis or memory)", c.CacheBackend)
	}
	return nil
}

// HasAPIKey reports whether a credential was supplied.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "rtpsearch", ".env"),
			filepath.Join(home, ".rtpsearch", ".env"),
		)
	}

	return paths
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
