package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/herder-tools/herder/pkg/util"
)

// Cache is the read-through cache used by Client. Implementations must
// treat every failure as a miss; the caller always has the direct fetch
// to fall back on.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// RedisCache caches inventory lookups in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis at addr. The connection is lazy; a
// down Redis shows up as cache misses, not as errors.
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			util.Debugf("cache get %s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		util.Debugf("cache set %s: %v", key, err)
	}
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
