// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Domain is the host the HTTP server binds to.
	Domain string `koanf:"domain"`

	// Port is the HTTP listen port.
	Port int `koanf:"port"`

	// DBPath is the SQLite file holding the leaderboard table.
	DBPath string `koanf:"db_path"`

	// DBBusyTimeoutMS is how long SQLite retries a locked file.
	DBBusyTimeoutMS int `koanf:"db_busy_timeout_ms"`

	// DBJournalMode is the SQLite journal mode, e.g. WAL or DELETE.
	DBJournalMode string `koanf:"db_journal_mode"`

	// RedisAddr enables the listing cache when set, e.g. "localhost:6379".
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// CacheKey overrides the Redis key of the cached listing. Empty derives
	// the key from DBPath.
	CacheKey string `koanf:"cache_key"`

	// CacheTTLSeconds bounds how long a cached listing is served.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// FeedBuffer is the per-subscriber change feed buffer.
	FeedBuffer int `koanf:"feed_buffer"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Domain:          "localhost",
		Port:            8080,
		DBPath:          "leaderboard.db",
		DBBusyTimeoutMS: 5000,
		DBJournalMode:   "WAL",
		CacheTTLSeconds: 30,
		FeedBuffer:      64,
	}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Domain, strconv.Itoa(c.Port))
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// DBBusyTimeout returns DBBusyTimeoutMS as a duration.
func (c *Config) DBBusyTimeout() time.Duration {
	return time.Duration(c.DBBusyTimeoutMS) * time.Millisecond
}
