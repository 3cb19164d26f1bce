// Package kv is the short-lived key/value storage behind portal sessions and
// staged bookings. Values are stored as JSON with a per-key TTL.
package kv

import (
	"context"
	"time"
)

// Store is implemented by MemoryStore and RedisStore.
type Store interface {
	// Set stores value under key for ttl. A zero ttl keeps the key until deleted.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get decodes the value under key into dst and reports whether it existed.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Take is Get followed by Delete as one atomic step. Of two concurrent
	// callers at most one sees the value.
	Take(ctx context.Context, key string, dst any) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Purger is implemented by stores that must evict expired keys themselves.
type Purger interface {
	Purge(now time.Time) int
}
