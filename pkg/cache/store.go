package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrStoreUnavailable indicates the backend could not serve the operation
	ErrStoreUnavailable = errors.New("cache store unavailable")
)

// Backend names, used in configuration and as metric labels.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Store holds cached origin responses with per-entry expiration.
//
// Implementations must be safe for concurrent use. A reader observes either
// the previous or the new value of a key, never a partial write.
type Store interface {
	// Get returns the cached value for key.
	// Returns ErrCacheMiss if the key is absent or expired, and an error
	// wrapping ErrStoreUnavailable if the backend failed.
	Get(ctx context.Context, key CacheKey) ([]byte, error)

	// Set stores value under key, restarting its expiration clock.
	// A non-positive ttl stores nothing.
	Set(ctx context.Context, key CacheKey, value []byte, ttl time.Duration) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
