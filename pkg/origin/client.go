// Package origin fetches content from the upstream origin server.
//
// A fetch is a single GET: no retries, no conditional headers and no caching
// of its own. Caching is the caller's concern.
package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Sternrassler/cache-proxy/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

// Prometheus metrics for origin fetches.
var (
	originRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_proxy_origin_requests_total",
		Help: "Total origin fetches by outcome",
	}, []string{"outcome"}) // "ok", "unreachable", "status", "decode"

	originRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_proxy_origin_request_duration_seconds",
		Help:    "Origin fetch duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
)

// Client performs origin fetches.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Timeout bounds a whole fetch, body included (0 means no timeout)
	Timeout time.Duration

	// UserAgent is sent on every fetch when set
	UserAgent string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: "cache-proxy/0.2.0",
	}
}

// New creates a new origin client.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %s)", cfg.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logging.NewLogger("origin"),
	}, nil
}

// Fetch GETs target and returns the body as UTF-8 text.
//
// Errors are *Error values: ErrorClassUnreachable for transport failures,
// ErrorClassStatus for non-2xx responses and ErrorClassDecode when the body
// cannot be read or decoded.
func (c *Client) Fetch(ctx context.Context, target string) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		originRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.fail(&Error{ErrorClass: ErrorClassUnreachable, Message: "create request", Err: err})
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().Str("target", target).Msg("Fetching origin")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(&Error{ErrorClass: ErrorClassUnreachable, Message: "request failed", Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, c.fail(&Error{StatusCode: resp.StatusCode, ErrorClass: ErrorClassStatus, Message: resp.Status})
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(&Error{StatusCode: resp.StatusCode, ErrorClass: ErrorClassDecode, Message: "read body", Err: err})
	}

	body, err := decodeText(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, c.fail(&Error{StatusCode: resp.StatusCode, ErrorClass: ErrorClassDecode, Message: "decode body", Err: err})
	}

	originRequestsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug().
		Str("target", target).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Origin fetch complete")

	return body, nil
}

func (c *Client) fail(e *Error) error {
	originRequestsTotal.WithLabelValues(string(e.ErrorClass)).Inc()
	c.logger.Warn().Err(e).Str("error_class", string(e.ErrorClass)).Msg("Origin fetch failed")
	return e
}

// decodeText converts raw to UTF-8 using the charset declared in contentType,
// a BOM or an HTML meta tag. UTF-8 content must already be valid.
func decodeText(raw []byte, contentType string) ([]byte, error) {
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" {
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("body is not valid utf-8")
		}
		return raw, nil
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return decoded, nil
}
