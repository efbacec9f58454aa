package utils

import (
	"context"       // Context for cache operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	gocache "github.com/patrickmn/go-cache" // In-process cache
	"github.com/redis/go-redis/v9"          // Redis client
)

// Cache stores JSON encoded values under string keys with a TTL
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)             // Decode key into dest, false when missing
	Set(ctx context.Context, key string, value any, ttl time.Duration) error // Encode and store value
	Delete(ctx context.Context, keys ...string) error                        // Invalidate keys
}

// RedisCache is a Cache backed by Redis, shared between server instances
type RedisCache struct {
	rdb *redis.Client // Redis client
}

// NewRedisCache wraps an existing Redis client
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal(val, dest) // Unmarshal JSON into dest
}

// Set sets a value in Redis with a specified TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return c.rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// Delete deletes keys from Redis
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// MemoryCache is a Cache local to the process, used when no Redis is configured
type MemoryCache struct {
	store *gocache.Cache // Underlying expiring map
}

// NewMemoryCache creates an in-process cache that purges expired entries every cleanup interval
func NewMemoryCache(cleanup time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, cleanup)}
}

// Get retrieves a value and unmarshals it into dest
func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	val, ok := c.store.Get(key)
	if !ok {
		return false, nil // Key does not exist or expired
	}
	return true, json.Unmarshal(val.([]byte), dest)
}

// Set stores the JSON encoding of value so callers never share mutable state
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store.Set(key, b, ttl)
	return nil
}

// Delete removes keys
func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.store.Delete(k)
	}
	return nil
}
