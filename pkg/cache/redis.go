// Package cache wraps Redis as a short-lived read cache for availability
// lookups. A nil *Cache is valid and disables caching, so the engine degrades
// gracefully when Redis is absent or unreachable.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at addr. It returns nil (caching disabled) when addr
// is empty or the server does not answer a ping.
func New(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Cache] redis unavailable at %s, caching disabled: %v", addr, err)
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		log.Printf("[Cache] set %s: %v", key, err)
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[Cache] delete: %v", err)
	}
}

func (c *Cache) Close() {
	if c == nil {
		return
	}
	_ = c.client.Close()
}
