// Package metrics serves the Prometheus metrics of the proxy.
// Metrics are defined in their respective packages (cache, origin, proxy)
// and registered on the default registry via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - cache_proxy_cache_hits_total{backend} (Counter)
//   - cache_proxy_cache_misses_total{backend} (Counter): absent or expired
//   - cache_proxy_cache_written_bytes_total{backend} (Counter)
//   - cache_proxy_store_errors_total{backend, operation} (Counter)
//
// Origin Metrics (pkg/origin):
//   - cache_proxy_origin_requests_total{outcome} (Counter): ok, unreachable, status, decode
//   - cache_proxy_origin_request_duration_seconds (Histogram)
//
// Request Metrics (pkg/proxy):
//   - cache_proxy_requests_total{cache, code} (Counter): cache is HIT, MISS or none
//   - cache_proxy_store_write_failures_total (Counter): dropped writes after a miss
//
// Example Prometheus Queries:
//
//   # Hit ratio
//   sum(rate(cache_proxy_requests_total{cache="HIT"}[5m])) /
//   sum(rate(cache_proxy_requests_total{cache=~"HIT|MISS"}[5m]))
//
//   # Origin failures
//   rate(cache_proxy_origin_requests_total{outcome!="ok"}[5m])
