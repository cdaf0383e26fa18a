// Package cache wraps go-redis for de-duplicating reveal-scheduler ticks
// across horizontally-scaled instances. It also exposes GetBytes/SetBytes
// helpers; nothing in this module calls them. Grounded on
// Pascal509-Smart-Doctor-Booking-Reminder-App's cache_service.go, which
// wraps the same client for reminder de-duplication.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is nil-safe: on a nil *Cache (or one with no client) GetBytes
// reports "not cached", SetBytes does nothing, and TryLock reports the lock
// as acquired, so the reveal scheduler processes every tick when Redis is
// not configured rather than failing outright.
type Cache struct {
	client *redis.Client
}

// New wraps an existing client. Pass nil to get a no-op cache.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// TryLock acquires a short-lived lock for key, used to ensure only one
// scheduler replica processes a given clinic's reveal tick at a time.
// Returns false only if the lock is already held; a disabled cache or a
// Redis error returns true (fail open).
func (c *Cache) TryLock(ctx context.Context, key string, ttl time.Duration) bool {
	if c == nil || c.client == nil {
		return true
	}
	ok, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return true // fail open: a transient Redis error should not stall reveals
	}
	return ok
}

// GetBytes returns the cached value and whether it was present.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// SetBytes stores value under key with the given TTL; errors are swallowed
// since the cache is an optimization, never a correctness dependency.
func (c *Cache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, key, value, ttl)
}
