// Package proxy serves the cached origin over HTTP.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cache-proxy/pkg/cache"
	"github.com/Sternrassler/cache-proxy/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Response header values.
const (
	HeaderCache = "X-Cache"
	CacheHit    = "HIT"
	CacheMiss   = "MISS"

	contentTypeHTML = "text/html"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_proxy_requests_total",
		Help: "Total proxied requests by cache outcome and status code",
	}, []string{"cache", "code"}) // cache: "HIT", "MISS", "none"

	storeWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_proxy_store_write_failures_total",
		Help: "Total cache writes dropped after a successful origin fetch",
	})
)

// Fetcher retrieves fresh content from the origin.
type Fetcher interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

// Config holds the handler configuration.
type Config struct {
	// Origin is the upstream URL; it is validated on every request
	Origin string

	// TTL is applied to every cache write
	TTL time.Duration

	// Store holds cached bodies
	Store cache.Store

	// Fetcher is called on cache misses
	Fetcher Fetcher

	// Logger to use. A "proxy" component logger is used if nil.
	Logger *zerolog.Logger
}

// Handler answers every request with the origin body, from cache when possible.
type Handler struct {
	origin  string
	ttl     time.Duration
	store   cache.Store
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewHandler creates a handler. The origin itself is not validated here:
// an invalid origin yields 400 responses.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("ttl must be positive (got %s)", cfg.TTL)
	}

	logger := logging.NewLogger("proxy")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Handler{
		origin:  strings.TrimSpace(cfg.Origin),
		ttl:     cfg.TTL,
		store:   cfg.Store,
		fetcher: cfg.Fetcher,
		logger:  logger,
	}, nil
}

// ServeHTTP implements http.Handler.
//
// One store read per request; on a miss, one origin fetch and one store
// write. Concurrent misses for the same key each fetch; the last write wins.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := cache.NewCacheKey(h.origin)
	if err != nil {
		h.logger.Warn().Err(err).Str("origin", h.origin).Msg("Rejecting request: invalid origin")
		h.fail(w, http.StatusBadRequest)
		return
	}
	logger := h.logger.With().Str("key", key.String()).Logger()

	body, err := h.store.Get(ctx, key)
	switch {
	case err == nil:
		logger.Debug().Int("bytes", len(body)).Msg("Cache hit")
		h.respond(w, r, body, CacheHit)
		return
	case errors.Is(err, cache.ErrCacheMiss):
		logger.Debug().Msg("Cache miss")
	default:
		// fail open: a broken store degrades to always fetching
		logger.Warn().Err(err).Msg("Cache read failed, fetching from origin")
	}

	// the key is for the store only; the origin is fetched as configured
	body, err = h.fetcher.Fetch(ctx, h.origin)
	if err != nil {
		logger.Warn().Err(err).Msg("Origin fetch failed")
		h.fail(w, http.StatusBadGateway)
		return
	}

	if ctx.Err() != nil {
		logger.Debug().Err(ctx.Err()).Msg("Request cancelled, skipping cache write")
	} else if err := h.store.Set(ctx, key, body, h.ttl); err != nil {
		storeWriteFailures.Inc()
		logger.Warn().Err(err).Msg("Cache write failed")
	} else {
		logger.Debug().Dur("ttl", h.ttl).Int("bytes", len(body)).Msg("Cached origin response")
	}

	h.respond(w, r, body, CacheMiss)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body []byte, cacheStatus string) {
	logging.AddRequestField(r, "cache", cacheStatus)
	requestsTotal.WithLabelValues(cacheStatus, strconv.Itoa(http.StatusOK)).Inc()

	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set(HeaderCache, cacheStatus)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Debug().Err(err).Msg("Failed to write response")
	}
}

// fail writes an error status without a cache header; no cache decision was made.
func (h *Handler) fail(w http.ResponseWriter, code int) {
	requestsTotal.WithLabelValues("none", strconv.Itoa(code)).Inc()
	http.Error(w, http.StatusText(code), code)
}
