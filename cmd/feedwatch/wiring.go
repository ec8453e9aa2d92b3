package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pevans/feedwatch"
	"github.com/pevans/feedwatch/cache"
	"github.com/pevans/feedwatch/config"
	"github.com/pevans/feedwatch/subscription"
)

// closer releases a resource opened by the wiring helpers.
type closer func() error

func noopCloser() error { return nil }

// openCache builds the configured cache backend.
func openCache(cfg *config.Config, logger *slog.Logger) (cache.Cache, closer, error) {
	opts := []cache.Option{cache.WithLogger(logger)}

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		return cache.NewMemory(cfg.Cache.TTL, opts...), noopCloser, nil

	case config.CacheSQLite:
		c, err := cache.NewSQLite(cfg.Cache.DSN, cfg.Cache.TTL, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
		return c, c.Close, nil

	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.DSN})
		return cache.NewRedis(client, cfg.Cache.TTL, opts...), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// openSource returns the SQLite store when a DSN is configured and the
// subscription file otherwise.
func openSource(cfg *config.Config) (subscription.Source, closer, error) {
	if cfg.Subscriptions.DSN != "" {
		store, err := subscription.NewStore(cfg.Subscriptions.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open subscription store: %w", err)
		}
		return store, store.Close, nil
	}
	return subscription.NewFileSource(cfg.Subscriptions.File), noopCloser, nil
}

// newService wires fetcher, aggregator and service from cfg around c.
func newService(cfg *config.Config, c cache.Cache, logger *slog.Logger) *feedwatch.Service {
	fetcher := feedwatch.NewFetcher(c,
		&http.Client{Timeout: cfg.Fetch.Timeout},
		&feedwatch.FetcherConfig{
			UserAgent:      cfg.Fetch.UserAgent,
			MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
			CacheTTL:       cfg.Cache.TTL,
			RateInterval:   cfg.Fetch.RateInterval,
			RequestTimeout: cfg.Fetch.Timeout,
		},
		logger,
	)

	aggregator := feedwatch.NewAggregator(fetcher, &feedwatch.AggregatorConfig{
		Concurrency:  cfg.Fetch.Concurrency,
		FetchTimeout: cfg.Fetch.Timeout,
	}, logger)

	return feedwatch.NewService(aggregator, logger)
}

// runJanitor drops expired cache entries every interval until ctx is done.
// Redis expires keys on its own and is left alone.
func runJanitor(ctx context.Context, c cache.Cache, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = cache.DefaultTTL
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeExpired(ctx, c, logger)
		}
	}
}

func purgeExpired(ctx context.Context, c cache.Cache, logger *slog.Logger) {
	switch backend := c.(type) {
	case *cache.Memory:
		if n := backend.Purge(); n > 0 {
			logger.Debug("purged expired cache entries", "count", n)
		}
	case *cache.SQLite:
		n, err := backend.Purge(ctx)
		if err != nil {
			logger.Error("failed to purge cache", "error", err)
			return
		}
		if n > 0 {
			logger.Debug("purged expired cache entries", "count", n)
		}
	}
}
