// Package cache holds fetched feed bodies keyed by subscription URL so that
// repeated aggregations within a freshness window do not hit the network.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTTL is the freshness window applied when none is configured.
const DefaultTTL = 600 * time.Second

// Response is a raw feed response body as received from the network.
type Response struct {
	Body        []byte `json:"body"`
	ContentType string `json:"content_type,omitempty"`
}

// Record is a cached response together with its freshness metadata.
type Record struct {
	Response  Response      `json:"response"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// Fresh reports whether the record is still inside its freshness window at
// now.
func (r Record) Fresh(now time.Time) bool {
	return now.Before(r.FetchedAt.Add(r.TTL))
}

// Cache maps feed URLs to previously fetched responses. Get reports a miss
// for absent and expired entries alike; Put stores the response verbatim and
// stamps it with the insertion time. Keys are used exactly as given.
//
// Implementations are safe for concurrent use. Concurrent puts to the same
// key are last-write-wins.
type Cache interface {
	Get(ctx context.Context, url string) (Response, bool)
	Put(ctx context.Context, url string, resp Response)
}

// Option configures a cache backend.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock replaces the time source used to stamp and judge records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger used to report backend faults.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NormalizeTTL returns the freshness window a cache actually uses for ttl:
// DefaultTTL when ttl is not positive.
func NormalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
