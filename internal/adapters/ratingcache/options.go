package ratingcache

import (
	"time"

	"github.com/trev125/FlickPick/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithStorage persists the cache. Without it the cache is memory-only.
func WithStorage(s Storage) Option {
	return func(c *Cache) {
		c.storage = s
	}
}

// WithFlushEvery flushes whenever the entry count reaches a multiple of n.
func WithFlushEvery(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.flushEvery = n
		}
	}
}

// WithResolveTimeout bounds one shared provider lookup.
func WithResolveTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.resolveTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}
