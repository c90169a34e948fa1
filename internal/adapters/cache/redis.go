package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/highscores/internal/domain/model"
	"github.com/okian/highscores/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultKey         = "highscores:leaderboard"
	defaultTTL         = 30 * time.Second
	defaultDialTimeout = 5 * time.Second
)

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache stores the listing as one JSON value under a single key.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg Config, opts ...Option) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: defaultDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnavailable, cfg.Addr, err)
	}
	return NewRedisWithClient(client, opts...), nil
}

// NewRedisWithClient wraps an existing client (useful for testing).
func NewRedisWithClient(client *redis.Client, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, key: defaultKey, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached listing. ok is false on a miss.
func (c *RedisCache) Get(ctx context.Context) (entries []model.LeaderboardEntry, ok bool, err error) {
	b, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheResult("miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheResult("error")
		return nil, false, fmt.Errorf("%w: get: %w", ErrUnavailable, err)
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		metrics.RecordCacheResult("error")
		return nil, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	metrics.RecordCacheResult("hit")
	return entries, true, nil
}

// Set replaces the cached listing.
func (c *RedisCache) Set(ctx context.Context, entries []model.LeaderboardEntry) error {
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	if err := c.client.Set(ctx, c.key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %w", ErrUnavailable, err)
	}
	return nil
}

// Invalidate drops the cached listing.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("%w: del: %w", ErrUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
