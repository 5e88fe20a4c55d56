package snapshot

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisCache shares raw observations across repeated runs and processes.
// Misses and transport errors both read as cache misses; the provider
// falls through to the source either way.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache wraps an existing Redis client. A zero TTL stores entries
// without expiry.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache read failed, treating as miss")
		return 0, false
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("raw", raw).Msg("redis cache entry is not a float, dropping")
		c.client.Del(ctx, key)
		return 0, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value float64) {
	if err := c.client.Set(ctx, key, strconv.FormatFloat(value, 'g', -1, 64), c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache invalidation failed")
	}
}

func (c *RedisCache) InvalidateAll(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, "mac:obs:*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("redis cache scan failed during invalidation")
	}
}
