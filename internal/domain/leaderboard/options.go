package leaderboard

import (
	"time"

	"github.com/okian/highscores/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCache sets the listing cache. A nil cache leaves caching disabled.
func WithCache(c ListingCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithPublisher sets where committed changes are announced.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides the time source used for date_created.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
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
