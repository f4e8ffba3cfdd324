package catalog

import (
	"time"

	"github.com/trev125/FlickPick/pkg/logger"
)

// Option applies a configuration option to the Plex provider.
type Option func(*Plex)

// WithTTL sets how long a catalog snapshot is served before Plex is asked again.
func WithTTL(d time.Duration) Option {
	return func(p *Plex) {
		if d > 0 {
			p.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Plex) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Plex) {
		if l != nil {
			p.logger = l
		}
	}
}
