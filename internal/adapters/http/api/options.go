package api

import "github.com/trev125/FlickPick/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithCreateRateLimit caps session creations per client IP per minute. Zero
// disables the limit.
func WithCreateRateLimit(n int) Option {
	return func(s *Server) {
		s.createRateLimit = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
