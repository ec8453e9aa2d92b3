package config

import (
	"os"
	"strconv"
	"time"
)

// applyEnv overrides c with any FEEDWATCH_* variables that are set.
// Unparsable values are ignored.
func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("FEEDWATCH_ADDR", c.Server.Addr)

	c.Subscriptions.File = getEnv("FEEDWATCH_SUBSCRIPTIONS_FILE", c.Subscriptions.File)
	c.Subscriptions.DSN = getEnv("FEEDWATCH_SUBSCRIPTIONS_DSN", c.Subscriptions.DSN)

	c.Cache.Backend = getEnv("FEEDWATCH_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.DSN = getEnv("FEEDWATCH_CACHE_DSN", c.Cache.DSN)
	c.Cache.TTL = getEnvDuration("FEEDWATCH_CACHE_TTL", c.Cache.TTL)

	c.Fetch.Timeout = getEnvDuration("FEEDWATCH_FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.Concurrency = getEnvInt("FEEDWATCH_CONCURRENCY", c.Fetch.Concurrency)
	c.Fetch.RateInterval = getEnvDuration("FEEDWATCH_RATE_INTERVAL", c.Fetch.RateInterval)
	c.Fetch.UserAgent = getEnv("FEEDWATCH_USER_AGENT", c.Fetch.UserAgent)
	c.Fetch.MaxBodyBytes = int64(getEnvInt("FEEDWATCH_MAX_BODY_BYTES", int(c.Fetch.MaxBodyBytes)))

	c.Log.Level = getEnv("FEEDWATCH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("FEEDWATCH_LOG_FORMAT", c.Log.Format)
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
