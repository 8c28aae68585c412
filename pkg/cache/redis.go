package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys inside a shared Redis database.
const DefaultRedisPrefix = "cache-proxy:"

// scanBatch is the SCAN COUNT hint and the DEL batch size used by Clear.
const scanBatch = 100

// RedisStore is a Store backed by Redis. Expiration is delegated to Redis
// (SET with EX), so expired keys disappear without any client-side check.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store over an existing client.
// The client is owned by the caller and shared; Close does not close it.
// With an empty prefix, Clear flushes the whole database.
func NewRedisStore(redisClient *redis.Client, prefix string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (r *RedisStore) redisKey(key CacheKey) string {
	return r.prefix + key.String()
}

// Get retrieves the value for key.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (r *RedisStore) Get(ctx context.Context, key CacheKey) ([]byte, error) {
	data, err := r.redis.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			recordMiss(BackendRedis)
			return nil, ErrCacheMiss
		}
		recordError(BackendRedis, "get")
		return nil, fmt.Errorf("%w: redis get: %v", ErrStoreUnavailable, err)
	}

	recordHit(BackendRedis)
	return data, nil
}

// Set stores value with the given TTL.
func (r *RedisStore) Set(ctx context.Context, key CacheKey, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired, don't cache
		return nil
	}

	if err := r.redis.Set(ctx, r.redisKey(key), value, ttl).Err(); err != nil {
		recordError(BackendRedis, "set")
		return fmt.Errorf("%w: redis set: %v", ErrStoreUnavailable, err)
	}

	recordWrite(BackendRedis, len(value))
	return nil
}

// Clear removes every cache key. Without a prefix the selected database is
// flushed; with a prefix only the keys under it are deleted.
func (r *RedisStore) Clear(ctx context.Context) error {
	if r.prefix == "" {
		if err := r.redis.FlushDB(ctx).Err(); err != nil {
			recordError(BackendRedis, "clear")
			return fmt.Errorf("%w: redis flushdb: %v", ErrStoreUnavailable, err)
		}
		return nil
	}

	batch := make([]string, 0, scanBatch)
	iter := r.redis.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.del(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		recordError(BackendRedis, "clear")
		return fmt.Errorf("%w: redis scan: %v", ErrStoreUnavailable, err)
	}
	if len(batch) > 0 {
		return r.del(ctx, batch)
	}
	return nil
}

func (r *RedisStore) del(ctx context.Context, keys []string) error {
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		recordError(BackendRedis, "delete")
		return fmt.Errorf("%w: redis del: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner.
func (r *RedisStore) Close() error {
	return nil
}
