package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_proxy_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"}, // "memory", "redis", "sqlite"
	)

	// CacheMisses tracks cache misses (absent or expired) by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_proxy_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// CacheWrittenBytes tracks bytes written to the store
	CacheWrittenBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_proxy_cache_written_bytes_total",
			Help: "Total number of bytes written to the cache store",
		},
		[]string{"backend"},
	)

	// StoreErrors tracks backend failures
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_proxy_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"backend", "operation"}, // "get", "set", "clear", "delete"
	)
)

func recordHit(backend string) {
	CacheHits.WithLabelValues(backend).Inc()
}

func recordMiss(backend string) {
	CacheMisses.WithLabelValues(backend).Inc()
}

func recordWrite(backend string, n int) {
	CacheWrittenBytes.WithLabelValues(backend).Add(float64(n))
}

func recordError(backend, operation string) {
	StoreErrors.WithLabelValues(backend, operation).Inc()
}
