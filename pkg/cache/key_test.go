package cache

import (
	"errors"
	"testing"
)

func TestNewCacheKey(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{
			name:   "bare host gets root path",
			origin: "http://localhost",
			want:   "http://localhost/",
		},
		{
			name:   "scheme and host lowercased",
			origin: "HTTPS://Example.COM/Docs",
			want:   "https://example.com/Docs",
		},
		{
			name:   "default http port dropped",
			origin: "http://example.com:80/index.html",
			want:   "http://example.com/index.html",
		},
		{
			name:   "default https port dropped",
			origin: "https://example.com:443",
			want:   "https://example.com/",
		},
		{
			name:   "non-default port kept",
			origin: "http://127.0.0.1:8080/",
			want:   "http://127.0.0.1:8080/",
		},
		{
			name:   "query kept verbatim",
			origin: "http://example.com/page?b=2&a=1",
			want:   "http://example.com/page?b=2&a=1",
		},
		{
			name:   "fragment dropped",
			origin: "http://example.com/page#section",
			want:   "http://example.com/page",
		},
		{
			name:   "dot segments resolved",
			origin: "http://example.com/a/../b/./c",
			want:   "http://example.com/b/c",
		},
		{
			name:   "trailing slash kept after dot segments",
			origin: "http://example.com/a/b/../",
			want:   "http://example.com/a/",
		},
		{
			name:   "userinfo dropped",
			origin: "http://user:pw@example.com/",
			want:   "http://example.com/",
		},
		{
			name:   "ipv6 literal",
			origin: "http://[::1]:3001/",
			want:   "http://[::1]:3001/",
		},
		{
			name:   "surrounding whitespace ignored",
			origin: "  http://example.com  ",
			want:   "http://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewCacheKey(tt.origin)
			if err != nil {
				t.Fatalf("NewCacheKey(%q) error = %v", tt.origin, err)
			}
			if got := key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewCacheKey_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		origin string
	}{
		{name: "plain words", origin: "not a url"},
		{name: "empty", origin: ""},
		{name: "relative path", origin: "/index.html"},
		{name: "missing host", origin: "http://"},
		{name: "unsupported scheme", origin: "ftp://example.com/"},
		{name: "bad escape", origin: "http://example.com/%zz"},
		{name: "space in host", origin: "http://exa mple.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCacheKey(tt.origin)
			if !errors.Is(err, ErrInvalidOriginURL) {
				t.Errorf("NewCacheKey(%q) error = %v, want ErrInvalidOriginURL", tt.origin, err)
			}
		})
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	origins := []string{
		"http://localhost",
		"https://Example.com:443/a/b?x=1",
	}

	for _, origin := range origins {
		first, err := NewCacheKey(origin)
		if err != nil {
			t.Fatalf("NewCacheKey(%q) error = %v", origin, err)
		}
		for i := 0; i < 10; i++ {
			key, err := NewCacheKey(origin)
			if err != nil {
				t.Fatalf("NewCacheKey(%q) error = %v", origin, err)
			}
			if key != first {
				t.Errorf("iteration %d: key = %v, want %v (not deterministic)", i, key, first)
			}
		}
	}
}
