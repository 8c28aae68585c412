package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/cache-proxy/internal/config"
	"github.com/Sternrassler/cache-proxy/pkg/logging"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	clearCache bool

	// flag targets; only flags set on the command line are applied
	flags config.Config
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache-proxy",
		Short: "Caching reverse proxy for a single origin URL.",
		Long: `cache-proxy answers every GET / with the body of the configured origin,
served from a TTL cache when possible. Responses carry X-Cache: HIT or MISS.

Configuration is read from defaults, an optional YAML file (--config),
environment variables and flags, in increasing order of precedence.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			logCfg := logging.DefaultConfig()
			logCfg.Level = logging.LogLevel(cfg.LogLevel)
			logCfg.Pretty = cfg.LogPretty
			logging.Setup(logCfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.clearCache {
				return runClear(ctx, cfg)
			}
			return runServe(ctx, cfg)
		},
	}

	defaults := config.Default()
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.BoolVar(&opts.clearCache, "clear-cache", false, "flush the cache store and exit")
	f.IntVarP(&opts.flags.Port, "port", "p", defaults.Port, "port to listen on")
	f.StringVarP(&opts.flags.Origin, "origin", "o", defaults.Origin, "origin URL to proxy")
	f.IntVar(&opts.flags.CacheTTL, "cache-ttl", defaults.CacheTTL, "cache entry lifetime in seconds")
	f.StringVar(&opts.flags.Store, "store", defaults.Store, "cache store: memory, redis or sqlite")
	f.StringVar(&opts.flags.RedisURL, "redis-url", defaults.RedisURL, "Redis connection URL")
	f.StringVar(&opts.flags.RedisPrefix, "redis-prefix", defaults.RedisPrefix, "prefix for Redis keys (empty: clear flushes the database)")
	f.StringVar(&opts.flags.SQLitePath, "sqlite-path", defaults.SQLitePath, "SQLite database file")
	f.DurationVar(&opts.flags.OriginTimeout, "origin-timeout", defaults.OriginTimeout, "timeout for a single origin fetch")
	f.StringVar(&opts.flags.UserAgent, "user-agent", defaults.UserAgent, "User-Agent sent to the origin")
	f.StringVar(&opts.flags.LogLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	f.BoolVar(&opts.flags.LogPretty, "log-pretty", defaults.LogPretty, "human-readable console logs")

	return cmd
}

// loadConfig layers defaults, the config file, the environment and the flags
// that were set explicitly, then validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()

	if opts.configPath != "" {
		if err := cfg.LoadFile(opts.configPath); err != nil {
			return cfg, fmt.Errorf("error loading config from file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port = opts.flags.Port
	}
	if f.Changed("origin") {
		cfg.Origin = opts.flags.Origin
	}
	if f.Changed("cache-ttl") {
		cfg.CacheTTL = opts.flags.CacheTTL
	}
	if f.Changed("store") {
		cfg.Store = opts.flags.Store
	}
	if f.Changed("redis-url") {
		cfg.RedisURL = opts.flags.RedisURL
	}
	if f.Changed("redis-prefix") {
		cfg.RedisPrefix = opts.flags.RedisPrefix
	}
	if f.Changed("sqlite-path") {
		cfg.SQLitePath = opts.flags.SQLitePath
	}
	if f.Changed("origin-timeout") {
		cfg.OriginTimeout = opts.flags.OriginTimeout
	}
	if f.Changed("user-agent") {
		cfg.UserAgent = opts.flags.UserAgent
	}
	if f.Changed("log-level") {
		cfg.LogLevel = opts.flags.LogLevel
	}
	if f.Changed("log-pretty") {
		cfg.LogPretty = opts.flags.LogPretty
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
