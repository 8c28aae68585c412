package cache

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidOriginURL indicates the configured origin is not an absolute http(s) URL.
var ErrInvalidOriginURL = errors.New("invalid origin url")

// defaultPorts are dropped from the canonical host.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// CacheKey identifies a cached origin response.
// The zero value is not a valid key; use NewCacheKey.
type CacheKey struct {
	// Scheme is the lowercased URL scheme ("http" or "https")
	Scheme string

	// Host is the lowercased host, with the port only if it is not the scheme default
	Host string

	// Path is the escaped path, "/" when the origin has none
	Path string

	// RawQuery is the query string as configured, without the leading "?"
	RawQuery string
}

// NewCacheKey parses origin and derives its canonical cache key.
// Fragments and userinfo are dropped, dot segments resolved; query
// parameters are kept verbatim.
//
// Example:
//
//	NewCacheKey("HTTP://Example.COM:80") -> http://example.com/
func NewCacheKey(origin string) (CacheKey, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return CacheKey{}, fmt.Errorf("%w: %v", ErrInvalidOriginURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if _, ok := defaultPorts[scheme]; !ok {
		return CacheKey{}, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidOriginURL, origin)
	}
	if u.Hostname() == "" {
		return CacheKey{}, fmt.Errorf("%w: %q has no host", ErrInvalidOriginURL, origin)
	}

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		// IPv6 literal
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		host += ":" + port
	}

	// resolve "." and ".." segments
	path := u.ResolveReference(&url.URL{}).EscapedPath()
	if path == "" {
		path = "/"
	}

	return CacheKey{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: u.RawQuery,
	}, nil
}

// String returns the canonical URL, which is also the storage key.
func (k CacheKey) String() string {
	s := k.Scheme + "://" + k.Host + k.Path
	if k.RawQuery != "" {
		s += "?" + k.RawQuery
	}
	return s
}
