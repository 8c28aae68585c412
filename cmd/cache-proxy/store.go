package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/cache-proxy/internal/config"
	"github.com/Sternrassler/cache-proxy/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 5 * time.Second

// openStore opens the configured backend. The returned Store owns every
// connection it uses; closing it releases them.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Store, error) {
	switch cfg.Store {
	case cache.BackendMemory:
		logger.Info().Str("store", cfg.Store).Msg("Using in-process cache store")
		return cache.NewMemoryStore(), nil

	case cache.BackendRedis:
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", redisOpts.Addr, err)
		}
		logger.Info().Str("store", cfg.Store).Str("addr", redisOpts.Addr).Int("db", redisOpts.DB).Msg("Connected to Redis")

		return &ownedRedisStore{
			RedisStore: cache.NewRedisStore(redisClient, cfg.RedisPrefix),
			client:     redisClient,
		}, nil

	case cache.BackendSQLite:
		store, err := cache.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("store", cfg.Store).Str("path", cfg.SQLitePath).Msg("Opened SQLite cache store")
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

// ownedRedisStore closes the client it was opened with.
type ownedRedisStore struct {
	*cache.RedisStore
	client *redis.Client
}

func (s *ownedRedisStore) Close() error {
	return s.client.Close()
}
