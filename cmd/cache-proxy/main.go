// Command cache-proxy serves a single origin URL through a TTL cache.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd(&options{}).ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("cache-proxy failed")
		os.Exit(1)
	}
}
