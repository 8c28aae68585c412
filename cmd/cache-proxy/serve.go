package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/cache-proxy/internal/config"
	"github.com/Sternrassler/cache-proxy/pkg/cache"
	"github.com/Sternrassler/cache-proxy/pkg/logging"
	"github.com/Sternrassler/cache-proxy/pkg/origin"
	"github.com/Sternrassler/cache-proxy/pkg/proxy"
	"github.com/rs/zerolog"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// runServe serves until ctx is cancelled, then shuts down gracefully.
func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger("server")

	srv, store, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("origin", cfg.Origin).
			Dur("ttl", cfg.TTL()).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting cache proxy")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildServer wires store, origin client, handler and router. The caller
// owns the returned store.
func buildServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*http.Server, cache.Store, error) {
	if _, err := cache.NewCacheKey(cfg.Origin); err != nil {
		// still serve: every request answers 400 until the origin is fixed
		logger.Warn().Err(err).Str("origin", cfg.Origin).Msg("Configured origin is not a valid URL")
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	fetcher, err := origin.New(origin.Config{
		Timeout:   cfg.OriginTimeout,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create origin client: %w", err)
	}

	handler, err := proxy.NewHandler(proxy.Config{
		Origin:  cfg.Origin,
		TTL:     cfg.TTL(),
		Store:   store,
		Fetcher: fetcher,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create handler: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           proxy.NewRouter(handler, proxy.RouterConfig{Store: store}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, store, nil
}
