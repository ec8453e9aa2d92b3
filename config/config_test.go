package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 600*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 0, cfg.Fetch.Concurrency)
	assert.Equal(t, time.Duration(0), cfg.Fetch.RateInterval)
	assert.NoError(t, cfg.Validate())
}

// TestValidate verifies each rejected configuration
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{name: "defaults", modify: func(*Config) {}, valid: true},
		{name: "unknown backend", modify: func(c *Config) { c.Cache.Backend = "memcached" }},
		{name: "sqlite without dsn", modify: func(c *Config) { c.Cache.Backend = CacheSQLite }},
		{
			name: "sqlite with dsn",
			modify: func(c *Config) {
				c.Cache.Backend = CacheSQLite
				c.Cache.DSN = "cache.db"
			},
			valid: true,
		},
		{name: "redis without address", modify: func(c *Config) { c.Cache.Backend = CacheRedis }},
		{
			name: "no subscriptions",
			modify: func(c *Config) {
				c.Subscriptions.File = ""
				c.Subscriptions.DSN = ""
			},
		},
		{name: "negative ttl", modify: func(c *Config) { c.Cache.TTL = -time.Second }},
		{name: "zero timeout", modify: func(c *Config) { c.Fetch.Timeout = 0 }},
		{name: "negative concurrency", modify: func(c *Config) { c.Fetch.Concurrency = -1 }},
		{name: "negative rate interval", modify: func(c *Config) { c.Fetch.RateInterval = -time.Second }},
		{name: "zero body limit", modify: func(c *Config) { c.Fetch.MaxBodyBytes = 0 }},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "loud" }},
		{name: "bad log format", modify: func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
