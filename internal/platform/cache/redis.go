package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// JSONCache stores JSON documents under a key prefix with a fixed TTL. A nil
// cache or nil client always calls the loader.
type JSONCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewJSONCache constructs a JSONCache.
func NewJSONCache(client *redis.Client, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, prefix: prefix, ttl: ttl}
}

// Fetch decodes the cached value into dest, populating it with loader on a miss.
// Redis failures degrade to calling the loader.
func (c *JSONCache) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		raw, err := c.client.Get(ctx, c.key(key)).Bytes()
		if err == nil {
			if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
				return nil
			}
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		_ = c.client.Set(ctx, c.key(key), raw, c.ttl).Err()
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate drops a cached key.
func (c *JSONCache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *JSONCache) key(k string) string {
	return c.prefix + ":" + k
}
