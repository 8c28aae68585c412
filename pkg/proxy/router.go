package proxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/cache-proxy/pkg/cache"
	"github.com/Sternrassler/cache-proxy/pkg/logging"
	"github.com/Sternrassler/cache-proxy/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// DefaultMaxRequestBodyBytes limits inbound request bodies to 1 MiB.
const DefaultMaxRequestBodyBytes = 1 << 20

// readyTimeout bounds the store ping of the readiness probe.
const readyTimeout = 2 * time.Second

// RouterConfig holds the HTTP surface configuration.
type RouterConfig struct {
	// Store is pinged by /ready
	Store cache.Store

	// MaxRequestBodyBytes limits request bodies (DefaultMaxRequestBodyBytes if 0)
	MaxRequestBodyBytes int64

	// CompressionLevel is the gzip level for compressible responses (5 if 0)
	CompressionLevel int

	// Logger receives the access log. The global logger is used if nil.
	Logger *zerolog.Logger
}

// NewRouter mounts handler on GET / next to the operational endpoints.
func NewRouter(handler http.Handler, cfg RouterConfig) http.Handler {
	if cfg.MaxRequestBodyBytes <= 0 {
		cfg.MaxRequestBodyBytes = DefaultMaxRequestBodyBytes
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = 5
	}
	logger := logging.NewLogger("http")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	r := chi.NewRouter()
	r.Use(logging.Middleware(logger)...)
	r.Use(middleware.Recoverer)
	r.Use(limitRequestBody(cfg.MaxRequestBodyBytes))
	r.Use(middleware.Compress(cfg.CompressionLevel))

	r.Method(http.MethodGet, "/", handler)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(cfg.Store))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// limitRequestBody answers 413 when the declared body exceeds limit; bodies of
// unknown length are capped while read.
func limitRequestBody(limit int64) func(http.Handler) http.Handler {
	capped := middleware.RequestSize(limit)
	return func(next http.Handler) http.Handler {
		capNext := capped(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			capNext.ServeHTTP(w, r)
		})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(store cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "OK")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}
