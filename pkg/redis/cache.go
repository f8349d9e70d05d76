package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheVersion is part of every key; bump it when a cached type changes shape
// so old entries are never decoded into the new one
const CacheVersion = 1

// Cache stores JSON values under "<prefix>:v<version>:<key>"
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Key returns the namespaced key
func (c *Cache) Key(key string) string {
	return fmt.Sprintf("%s:v%d:%s", c.prefix, CacheVersion, key)
}

// Get decodes a cached value into dest. A miss is (false, nil).
// An entry that no longer decodes is deleted and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.rdb.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		if delErr := c.Delete(ctx, key); delErr != nil {
			return false, fmt.Errorf("drop undecodable entry %s: %w", key, delErr)
		}
		return false, nil
	}

	return true, nil
}

// Set stores value with ttl. A non-positive ttl stores nothing.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}

	if err := c.client.rdb.Set(ctx, c.Key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.rdb.Del(ctx, c.Key(key)).Err()
}
