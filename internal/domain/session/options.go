package session

import (
	"time"

	"github.com/trev125/FlickPick/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSection restricts the catalog to one library section.
func WithSection(section string) Option {
	return func(e *Engine) {
		e.section = section
	}
}

// WithDefaultSize sets the candidate count used when a session is created without one.
func WithDefaultSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultSize = n
		}
	}
}

// WithMaxAge sets how long a session lives before the sweep removes it.
func WithMaxAge(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.maxAge = d
		}
	}
}

// WithMatchTimeout bounds catalog listing plus enrichment for one match.
func WithMatchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.matchTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCodeGenerator replaces the random session code source.
func WithCodeGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newCode = fn
		}
	}
}

// WithUserIDGenerator replaces the generator used when a client joins without an id.
func WithUserIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newUserID = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
