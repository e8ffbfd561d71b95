// Package cache memoizes fetched pages and search results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache is a thin Redis wrapper. A nil *Cache is valid and caches nothing.
type Cache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// New connects to addr and pings it. An empty addr returns a nil Cache.
func New(ctx context.Context, addr string, logger *zap.Logger) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, prefix: "screener:", logger: logger}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Memoize returns the cached value for key, or calls fn and caches its
// result for ttl. Cache errors never fail the call.
func Memoize[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if c == nil {
		return fn()
	}

	var result T
	if data, ok := c.get(ctx, key); ok {
		if err := json.Unmarshal(data, &result); err == nil {
			return result, nil
		}
	}

	result, err := fn()
	if err != nil {
		return result, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	c.set(ctx, key, data, ttl)
	return result, nil
}
