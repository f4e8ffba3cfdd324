package service

import (
	"time"

	"github.com/trev125/FlickPick/internal/domain/session"
	"github.com/trev125/FlickPick/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCatalog replaces the configured catalog provider.
func WithCatalog(c session.Catalog) Option {
	return func(s *Service) {
		s.catalogOverride = c
	}
}

// WithClock replaces time.Now for session ages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
