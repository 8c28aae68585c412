// Package config loads the proxy configuration.
//
// Values are layered: defaults, then an optional YAML file, then environment
// variables. Command line flags are applied last by the caller.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cache-proxy/pkg/cache"
	"github.com/Sternrassler/cache-proxy/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultPort          = 3000
	DefaultOrigin        = "http://localhost"
	DefaultCacheTTL      = 60
	DefaultStore         = cache.BackendRedis
	DefaultRedisURL      = "redis://127.0.0.1:6379/0"
	DefaultSQLitePath    = "cache.db"
	DefaultOriginTimeout = 30 * time.Second
	DefaultUserAgent     = "cache-proxy/0.2.0"
)

// Config is the process configuration.
type Config struct {
	Port int `yaml:"port"`

	// Origin is the upstream URL. It is checked per request, not here.
	Origin string `yaml:"origin"`

	// CacheTTL is the entry lifetime in seconds
	CacheTTL int `yaml:"cache_ttl"`

	// Store selects the backend: memory, redis or sqlite
	Store string `yaml:"store"`

	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
	SQLitePath  string `yaml:"sqlite_path"`

	OriginTimeout time.Duration `yaml:"origin_timeout"`
	UserAgent     string        `yaml:"user_agent"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:          DefaultPort,
		Origin:        DefaultOrigin,
		CacheTTL:      DefaultCacheTTL,
		Store:         DefaultStore,
		RedisURL:      DefaultRedisURL,
		RedisPrefix:   cache.DefaultRedisPrefix,
		SQLitePath:    DefaultSQLitePath,
		OriginTimeout: DefaultOriginTimeout,
		UserAgent:     DefaultUserAgent,
		LogLevel:      string(logging.LevelInfo),
	}
}

// TTL returns CacheTTL as a duration.
func (c Config) TTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	return nil
}

// ApplyEnv overlays environment variables onto c. Empty variables are ignored.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	lookup := func(key string) (string, bool) {
		value := strings.TrimSpace(getenv(key))
		return value, value != ""
	}

	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT %q is not a number", ErrInvalidConfig, v)
		}
		c.Port = port
	}
	if v, ok := lookup("ORIGIN"); ok {
		c.Origin = v
	}
	if v, ok := lookup("CACHE_TTL"); ok {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CACHE_TTL %q is not a number of seconds", ErrInvalidConfig, v)
		}
		c.CacheTTL = ttl
	}
	if v, ok := lookup("STORE"); ok {
		c.Store = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.RedisURL = v
	}
	if v, ok := lookup("REDIS_PREFIX"); ok {
		c.RedisPrefix = v
	}
	if v, ok := lookup("SQLITE_PATH"); ok {
		c.SQLitePath = v
	}
	if v, ok := lookup("ORIGIN_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: ORIGIN_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		c.OriginTimeout = timeout
	}
	if v, ok := lookup("USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("LOG_PRETTY"); ok {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LOG_PRETTY %q is not a boolean", ErrInvalidConfig, v)
		}
		c.LogPretty = pretty
	}
	return nil
}

// Validate checks c. Every failure wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.CacheTTL < 1 {
		return fmt.Errorf("%w: cache ttl must be at least 1 second (got %d)", ErrInvalidConfig, c.CacheTTL)
	}
	if c.OriginTimeout < 0 {
		return fmt.Errorf("%w: origin timeout must not be negative (got %s)", ErrInvalidConfig, c.OriginTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Store {
	case cache.BackendMemory:
	case cache.BackendRedis:
		u, err := url.Parse(c.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss" && u.Scheme != "unix") {
			return fmt.Errorf("%w: redis url %q", ErrInvalidConfig, c.RedisURL)
		}
	case cache.BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite path is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q (want %s, %s or %s)",
			ErrInvalidConfig, c.Store, cache.BackendMemory, cache.BackendRedis, cache.BackendSQLite)
	}
	return nil
}
