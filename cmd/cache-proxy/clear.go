package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/cache-proxy/internal/config"
	"github.com/Sternrassler/cache-proxy/pkg/logging"
)

// runClear flushes the configured store. It never binds a listener.
func runClear(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger("admin")

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	logger.Info().Str("store", cfg.Store).Msg("Cache cleared successfully")
	return nil
}
