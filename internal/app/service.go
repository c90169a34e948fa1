// Package service assembles the leaderboard components into one runnable
// unit: the SQLite store, its guard, the optional listing cache and the
// change feed.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/highscores/internal/adapters/cache"
	"github.com/okian/highscores/internal/adapters/mq/feed"
	"github.com/okian/highscores/internal/adapters/repository"
	"github.com/okian/highscores/internal/domain/guard"
	"github.com/okian/highscores/internal/domain/leaderboard"
	"github.com/okian/highscores/pkg/logger"
	"github.com/okian/highscores/pkg/metrics"
)

// Service owns the long-lived leaderboard components.
type Service struct {
	mu sync.RWMutex

	// Core components
	store *repository.SQLStore
	board *leaderboard.Service
	cache *cache.RedisCache
	hub   *feed.Hub

	// Configuration
	dbPath     string
	storeOpts  []repository.Option
	redis      cache.Config
	cacheKey   string
	cacheTTL   time.Duration
	feedBuffer int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the SQLite file backing the leaderboard.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithSQLite sets the busy timeout and journal mode of the store.
func WithSQLite(busyTimeout time.Duration, journalMode string) Option {
	return func(s *Service) {
		s.storeOpts = []repository.Option{
			repository.WithBusyTimeout(busyTimeout),
			repository.WithJournalMode(journalMode),
		}
	}
}

// WithCacheKey overrides the Redis key of the cached listing.
func WithCacheKey(key string) Option {
	return func(s *Service) {
		if key != "" {
			s.cacheKey = key
		}
	}
}

// WithRedis enables the listing cache at addr.
func WithRedis(addr, password string, db int) Option {
	return func(s *Service) {
		s.redis = cache.Config{Addr: addr, Password: password, DB: db}
	}
}

// WithCacheTTL bounds how long a cached listing is served.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithFeedBuffer sets the per-subscriber change feed buffer.
func WithFeedBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.feedBuffer = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:     "leaderboard.db",
		cacheTTL:   30 * time.Second,
		feedBuffer: 64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens and initializes the store and wires the components around it.
// A store that cannot be opened or initialized is fatal; an unreachable
// cache is not, the service runs uncached instead.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting leaderboard service...", logger.String("dbPath", s.dbPath))

	store, err := openStore(ctx, s.dbPath, s.storeOpts...)
	if err != nil {
		return err
	}
	s.store = store

	lbOpts := []leaderboard.Option{leaderboard.WithLogger(s.logger.Named("leaderboard"))}
	if s.redis.Addr != "" {
		if c, err := s.openCache(ctx); err != nil {
			s.logger.Warn(ctx, "listing cache unavailable, serving from the store",
				logger.String("addr", s.redis.Addr),
				logger.Error(err),
			)
		} else {
			s.cache = c
			lbOpts = append(lbOpts, leaderboard.WithCache(c))
		}
	}

	s.hub = feed.NewHub(feed.WithBufferSize(s.feedBuffer))
	lbOpts = append(lbOpts, leaderboard.WithPublisher(s.hub))

	s.board = leaderboard.New(guard.New(s.store), lbOpts...)
	if n, err := s.board.Count(ctx); err == nil {
		metrics.UpdateTotalEntries(n)
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Bool("cache", s.cache != nil),
		logger.Int("feedBuffer", s.feedBuffer),
	)
	return nil
}

// Stop disconnects feed subscribers and closes the cache and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	if s.hub != nil {
		_ = s.hub.Close()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn(ctx, "closing cache", logger.Error(err))
		}
		s.cache = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// Leaderboard returns the business service. Nil before Start.
func (s *Service) Leaderboard() *leaderboard.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Feed returns the change feed hub. Nil before Start.
func (s *Service) Feed() *feed.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"dbPath":       s.dbPath,
		"cacheEnabled": s.cache != nil,
	}

	if s.started {
		stats["feedSubscribers"] = s.hub.Subscribers()
		if n, err := s.board.Count(ctx); err == nil {
			stats["totalEntries"] = n
		} else {
			s.logger.Warn(ctx, "counting entries for stats", logger.Error(err))
		}
	}

	return stats
}

// openCache connects the listing cache and clears any listing left under
// its key by an earlier process.
func (s *Service) openCache(ctx context.Context) (*cache.RedisCache, error) {
	key := s.cacheKey
	if key == "" {
		key = ListingCacheKey(s.dbPath)
	}
	c, err := cache.NewRedis(ctx, s.redis, cache.WithTTL(s.cacheTTL), cache.WithKey(key))
	if err != nil {
		return nil, err
	}
	if err := c.Invalidate(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// ListingCacheKey returns the Redis key of the listing cached for the store
// at dbPath.
func ListingCacheKey(dbPath string) string {
	if abs, err := filepath.Abs(dbPath); err == nil {
		dbPath = abs
	}
	return "highscores:leaderboard:" + dbPath
}

// InitStore creates the leaderboard schema at path and closes the file.
func InitStore(ctx context.Context, path string, opts ...repository.Option) error {
	store, err := openStore(ctx, path, opts...)
	if err != nil {
		return err
	}
	return store.Close()
}

func openStore(ctx context.Context, path string, opts ...repository.Option) (*repository.SQLStore, error) {
	store, err := repository.Open(ctx, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return store, nil
}
