package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces cache keys in a shared Redis instance.
const redisKeyPrefix = "feedwatch:cache:"

// Redis is a cache shared between processes. Expiry is delegated to Redis
// itself through the key TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewRedis creates a cache on top of an existing Redis client.
func NewRedis(client redis.UniversalClient, ttl time.Duration, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{
		client: client,
		ttl:    NormalizeTTL(ttl),
		now:    o.now,
		logger: o.logger,
	}
}

// Get returns the stored response for url. Redis faults are logged and
// reported as a miss.
func (r *Redis) Get(ctx context.Context, url string) (Response, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false
	}
	if err != nil {
		r.logger.Error("cache lookup failed", "backend", "redis", "url", url, "error", err)
		return Response{}, false
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		r.logger.Error("cache record corrupt", "backend", "redis", "url", url, "error", err)
		return Response{}, false
	}

	return record.Response, true
}

// Put stores resp under url with the cache's TTL.
func (r *Redis) Put(ctx context.Context, url string, resp Response) {
	record := Record{
		Response:  resp,
		FetchedAt: r.now(),
		TTL:       r.ttl,
	}

	data, err := json.Marshal(record)
	if err != nil {
		r.logger.Error("cache record encode failed", "backend", "redis", "url", url, "error", err)
		return
	}

	if err := r.client.Set(ctx, redisKeyPrefix+url, data, r.ttl).Err(); err != nil {
		r.logger.Error("cache store failed", "backend", "redis", "url", url, "error", err)
	}
}
