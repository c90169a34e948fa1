package cache

import "time"

// Option applies a configuration option to the RedisCache.
type Option func(*RedisCache)

// WithKey sets the Redis key holding the listing.
func WithKey(key string) Option {
	return func(c *RedisCache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithTTL bounds how long a listing may be served without a refresh.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}
