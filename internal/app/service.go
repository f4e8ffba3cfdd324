// Package service assembles the session engine and its adapters from
// configuration and owns their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/trev125/FlickPick/internal/adapters/catalog"
	"github.com/trev125/FlickPick/internal/adapters/enrich"
	"github.com/trev125/FlickPick/internal/adapters/ratingcache"
	"github.com/trev125/FlickPick/internal/adapters/repository"
	"github.com/trev125/FlickPick/internal/adapters/upstream"
	"github.com/trev125/FlickPick/internal/config"
	"github.com/trev125/FlickPick/internal/domain/selector"
	"github.com/trev125/FlickPick/internal/domain/session"
	"github.com/trev125/FlickPick/pkg/logger"
	"github.com/trev125/FlickPick/pkg/metrics"
)

// ErrNoCatalog is returned by Start when neither Plex nor a catalog file is configured.
var ErrNoCatalog = errors.New("no catalog configured: set plex.url or catalog_file")

// ErrNotStarted is returned when the engine is requested before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns the session engine and every adapter behind it.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store    *repository.MemoryStore
	cache    *ratingcache.Cache
	enricher *enrich.Client
	catalog  session.Catalog
	engine   *session.Engine
	clients  []*upstream.Client

	// Overrides
	catalogOverride session.Catalog
	now             func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service from cfg. Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the rating cache, builds the provider clients and the engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting flickpick service...")
	s.clients = nil

	cat, err := s.buildCatalog(ctx)
	if err != nil {
		return err
	}
	s.catalog = cat

	enricher, err := s.buildEnricher(ctx)
	if err != nil {
		return err
	}
	s.enricher = enricher

	var provider ratingcache.Provider
	if enricher != nil {
		provider = enricher
	}
	s.cache = ratingcache.New(ctx, provider, s.cacheOptions(ctx)...)

	var enr selector.Enricher
	if provider != nil {
		enr = s.cache
	}
	sel := selector.New(enr, selector.WithConcurrency(s.cfg.EnrichConcurrency))

	s.store = repository.NewMemoryStore(ctx)

	engineOpts := []session.Option{
		session.WithSection(s.cfg.Plex.Section),
		session.WithDefaultSize(s.cfg.DefaultCandidateCount),
		session.WithMaxAge(s.cfg.SessionMaxAge),
		session.WithMatchTimeout(s.cfg.MatchTimeout),
	}
	if s.now != nil {
		engineOpts = append(engineOpts, session.WithClock(s.now))
	}
	s.engine = session.NewEngine(s.store, s.catalog, sel, engineOpts...)

	s.started = true
	s.logger.Info(ctx, "flickpick service started",
		logger.Bool("plex", s.cfg.Plex.URL != ""),
		logger.Bool("enrichment", enricher != nil),
		logger.Int("cachedRatings", s.cache.Len()),
		logger.Int("defaultSize", s.cfg.DefaultCandidateCount),
	)
	return nil
}

// Stop flushes the rating cache and releases storage.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping flickpick service...")

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn(ctx, "closing rating cache", logger.Error(err))
		}
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "flickpick service stopped")
}

// Engine returns the session engine. It fails before Start.
func (s *Service) Engine() (*session.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// Sweeper returns a supervised service purging expired sessions.
func (s *Service) Sweeper() (*session.Sweeper, error) {
	engine, err := s.Engine()
	if err != nil {
		return nil, err
	}
	return session.NewSweeper(engine, s.cfg.SweepInterval), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"plex":            s.cfg.Plex.URL != "",
		"sessionMaxAge":   s.cfg.SessionMaxAge.String(),
		"defaultSize":     s.cfg.DefaultCandidateCount,
		"enrichWorkers":   s.cfg.EnrichConcurrency,
		"circuitBreakers": s.breakerStates(),
	}

	if s.started {
		active := s.engine.ActiveSessions(context.Background())
		stats["activeSessions"] = active
		stats["cachedRatings"] = s.cache.Len()
		if s.enricher != nil {
			stats["knownPeople"] = s.enricher.KnownPeople()
		}

		metrics.UpdateActiveSessions(active)
		metrics.UpdateRatingCacheSize(s.cache.Len())
	}

	return stats
}

func (s *Service) breakerStates() map[string]string {
	out := make(map[string]string, len(s.clients))
	for _, c := range s.clients {
		out[c.Name()] = c.State()
	}
	return out
}

func (s *Service) cacheOptions(ctx context.Context) []ratingcache.Option {
	opts := []ratingcache.Option{
		ratingcache.WithFlushEvery(s.cfg.RatingCache.FlushEvery),
	}
	if s.cfg.RatingCache.Path == "" {
		return opts
	}
	storage, err := ratingcache.OpenBadgerStorage(s.cfg.RatingCache.Path)
	if err != nil {
		s.logger.Warn(ctx, "rating cache storage unavailable, running in memory only",
			logger.String("path", s.cfg.RatingCache.Path),
			logger.Error(err),
		)
		return opts
	}
	return append(opts, ratingcache.WithStorage(storage))
}

func (s *Service) buildCatalog(ctx context.Context) (session.Catalog, error) {
	if s.catalogOverride != nil {
		return s.catalogOverride, nil
	}
	if s.cfg.Plex.URL != "" {
		client, err := upstream.New("plex", s.cfg.Plex.URL,
			upstream.WithHeader("X-Plex-Token", s.cfg.Plex.Token),
			upstream.WithHeader("Accept", "application/json"),
			upstream.WithTimeout(s.cfg.Plex.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("plex client: %w", err)
		}
		s.clients = append(s.clients, client)
		return catalog.NewPlex(client, catalog.WithTTL(s.cfg.Plex.CatalogTTL)), nil
	}
	if s.cfg.CatalogFile != "" {
		static, err := catalog.LoadStatic(s.cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "serving static catalog", logger.String("file", s.cfg.CatalogFile))
		return static, nil
	}
	return nil, ErrNoCatalog
}

// buildEnricher returns nil when no provider key is configured.
func (s *Service) buildEnricher(ctx context.Context) (*enrich.Client, error) {
	var (
		omdb *enrich.OMDb
		tmdb *enrich.TMDB
	)
	if s.cfg.OMDb.APIKey != "" {
		client, err := upstream.New("omdb", s.cfg.OMDb.BaseURL,
			upstream.WithQueryParam("apikey", s.cfg.OMDb.APIKey),
			upstream.WithRateLimit(s.cfg.OMDb.RPS, 1),
		)
		if err != nil {
			return nil, fmt.Errorf("omdb client: %w", err)
		}
		s.clients = append(s.clients, client)
		omdb = enrich.NewOMDb(client, s.cfg.TMDB.CastLimit)
	}
	if s.cfg.TMDB.APIKey != "" {
		client, err := upstream.New("tmdb", s.cfg.TMDB.BaseURL,
			upstream.WithQueryParam("api_key", s.cfg.TMDB.APIKey),
			upstream.WithRateLimit(s.cfg.TMDB.RPS, 1),
		)
		if err != nil {
			return nil, fmt.Errorf("tmdb client: %w", err)
		}
		s.clients = append(s.clients, client)
		tmdb = enrich.NewTMDB(client, s.cfg.TMDB.ImageBaseURL, s.cfg.TMDB.CastLimit)
	}
	if omdb == nil && tmdb == nil {
		s.logger.Warn(ctx, "no rating provider keys configured, candidates will not be enriched")
		return nil, nil
	}
	return enrich.NewClient(omdb, tmdb), nil
}
