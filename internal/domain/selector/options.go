package selector

import "github.com/trev125/FlickPick/pkg/logger"

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithConcurrency bounds parallel enrichment calls.
func WithConcurrency(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithShuffle replaces the random permutation, e.g. with a seeded one in tests.
func WithShuffle(fn ShuffleFunc) Option {
	return func(s *Selector) {
		if fn != nil {
			s.shuffle = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}
