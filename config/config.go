// Package config loads feedwatch settings from a YAML file and FEEDWATCH_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pevans/feedwatch/logger"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete feedwatch configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Cache         CacheConfig         `yaml:"cache"`
	Fetch         FetchConfig         `yaml:"fetch"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SubscriptionsConfig selects where subscriptions come from. A non-empty DSN
// selects the SQLite store; otherwise File is read.
type SubscriptionsConfig struct {
	File string `yaml:"file"`
	DSN  string `yaml:"dsn"`
}

// CacheConfig configures the fetch cache.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	// SQLite path or Redis address
	DSN string        `yaml:"dsn"`
	TTL time.Duration `yaml:"ttl"`
}

// FetchConfig configures fetching and aggregation.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	Concurrency  int           `yaml:"concurrency"`
	RateInterval time.Duration `yaml:"rate_interval"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
		Subscriptions: SubscriptionsConfig{
			File: "subscriptions.yaml",
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     600 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      10 * time.Second,
			Concurrency:  0,
			UserAgent:    "feedwatch/1.0 (+https://github.com/pevans/feedwatch)",
			MaxBodyBytes: 10 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first problem found in c.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheSQLite, CacheRedis:
		if c.Cache.DSN == "" {
			return fmt.Errorf("%w: cache backend %s requires a dsn", ErrInvalidConfig, c.Cache.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	if c.Subscriptions.File == "" && c.Subscriptions.DSN == "" {
		return fmt.Errorf("%w: no subscription file or dsn", ErrInvalidConfig)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: negative cache ttl", ErrInvalidConfig)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive", ErrInvalidConfig)
	}
	if c.Fetch.Concurrency < 0 {
		return fmt.Errorf("%w: negative concurrency", ErrInvalidConfig)
	}
	if c.Fetch.RateInterval < 0 {
		return fmt.Errorf("%w: negative rate interval", ErrInvalidConfig)
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max body bytes must be positive", ErrInvalidConfig)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}
