// Package cache provides the response cache of the proxy: cache key
// derivation and interchangeable stores with per-entry expiration.
//
// Three Store backends satisfy the same contract:
//
//   - MemoryStore: process-local map guarded by a sync.RWMutex, lazy expiration
//   - RedisStore: Redis with native key expiration (SET EX)
//   - SQLiteStore: SQLite file that survives restarts, expired rows removed on read
//
// # Basic Usage
//
//	// Derive the cache key from the configured origin
//	key, err := cache.NewCacheKey("https://example.com")
//	if err != nil {
//		// cache.ErrInvalidOriginURL
//	}
//
//	store := cache.NewRedisStore(redisClient, cache.DefaultRedisPrefix)
//
//	body, err := store.Get(ctx, key)
//	switch {
//	case err == nil:
//		// hit
//	case errors.Is(err, cache.ErrCacheMiss):
//		// absent or expired
//	case errors.Is(err, cache.ErrStoreUnavailable):
//		// backend failure, treat as a miss
//	}
//
//	_ = store.Set(ctx, key, body, time.Minute)
//
// # Metrics
//
//   - cache_proxy_cache_hits_total{backend}
//   - cache_proxy_cache_misses_total{backend}
//   - cache_proxy_cache_written_bytes_total{backend}
//   - cache_proxy_store_errors_total{backend, operation}
package cache
