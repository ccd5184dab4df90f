// ABOUTME: Query result cache with badger, redis and no-op backends.
// ABOUTME: Keys are namespaced strings; invalidation drops every key under a prefix.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Cache stores opaque values by key.
type Cache interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes every key starting with prefix. An empty prefix clears the cache.
	Invalidate(ctx context.Context, prefix string) error
	Backend() string
	Close() error
}

// GetJSON decodes a cached JSON value into dest. A decode failure counts as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dest any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes value as JSON and stores it.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Invalidate(context.Context, string) error                 { return nil }
func (Noop) Backend() string                                          { return BackendNone }
func (Noop) Close() error                                             { return nil }
