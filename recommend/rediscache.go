package recommend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by Redis, for deployments where several
// service instances should share one response cache. TTL is enforced
// natively by Redis.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		rdb:    rdb,
		ttl:    ttl,
		prefix: "pantrychef:recommendation:",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("CACHE: Redis get failed, treating as miss", "error", err)
		return "", false
	}
	return raw, true
}

func (c *RedisCache) Set(ctx context.Context, key, raw string) {
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		slog.Warn("CACHE: Redis set failed, entry not stored", "error", err)
	}
}
