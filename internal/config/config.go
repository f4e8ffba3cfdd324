// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Load layers a YAML file and FLICKPICK_* env vars on top of the defaults.
//   - Nested keys use a double underscore in env vars, e.g. FLICKPICK_PLEX__URL.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SessionMaxAge is how long a session lives after creation.
	SessionMaxAge time.Duration `koanf:"session_max_age"`

	// SweepInterval is how often expired sessions are purged.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// DefaultCandidateCount is the enrichment budget when a client omits one.
	DefaultCandidateCount int `koanf:"default_candidate_count"`

	// EnrichConcurrency bounds parallel enrichment calls per match.
	EnrichConcurrency int `koanf:"enrich_concurrency"`

	// MatchTimeout bounds a whole match computation.
	MatchTimeout time.Duration `koanf:"match_timeout"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// CreateRateLimit caps session creations per client IP per minute.
	CreateRateLimit int `koanf:"create_rate_limit"`

	// CatalogFile is a JSON movie list served when no Plex URL is configured.
	CatalogFile string `koanf:"catalog_file"`

	Plex        PlexConfig        `koanf:"plex"`
	OMDb        OMDbConfig        `koanf:"omdb"`
	TMDB        TMDBConfig        `koanf:"tmdb"`
	RatingCache RatingCacheConfig `koanf:"rating_cache"`
}

// PlexConfig locates the media server that provides the catalog.
type PlexConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
	// Section is the library section key; empty means the first movie section.
	Section    string        `koanf:"section"`
	CatalogTTL time.Duration `koanf:"catalog_ttl"`
	Timeout    time.Duration `koanf:"timeout"`
}

// OMDbConfig configures the primary rating provider.
type OMDbConfig struct {
	APIKey  string  `koanf:"api_key"`
	BaseURL string  `koanf:"base_url"`
	RPS     float64 `koanf:"rps"`
}

// TMDBConfig configures the secondary rating and artwork provider.
type TMDBConfig struct {
	APIKey       string  `koanf:"api_key"`
	BaseURL      string  `koanf:"base_url"`
	ImageBaseURL string  `koanf:"image_base_url"`
	RPS          float64 `koanf:"rps"`
	CastLimit    int     `koanf:"cast_limit"`
}

// RatingCacheConfig configures durable storage for enrichment results.
type RatingCacheConfig struct {
	// Path is the badger directory; empty keeps the cache in memory only.
	Path       string `koanf:"path"`
	FlushEvery int    `koanf:"flush_every"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":5000",
		SessionMaxAge:         24 * time.Hour,
		SweepInterval:         time.Hour,
		DefaultCandidateCount: 20,
		EnrichConcurrency:     8,
		MatchTimeout:          90 * time.Second,
		CORSOrigins:           []string{"*"},
		CreateRateLimit:       30,
		Plex: PlexConfig{
			CatalogTTL: 10 * time.Minute,
			Timeout:    30 * time.Second,
		},
		OMDb: OMDbConfig{
			BaseURL: "https://www.omdbapi.com/",
			RPS:     5,
		},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/w500",
			RPS:          20,
			CastLimit:    5,
		},
		RatingCache: RatingCacheConfig{
			Path:       "data/rating-cache",
			FlushEvery: 10,
		},
	}
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SessionMaxAge <= 0:
		return fmt.Errorf("%w: session_max_age must be positive", ErrInvalidConfig)
	case c.SweepInterval <= 0:
		return fmt.Errorf("%w: sweep_interval must be positive", ErrInvalidConfig)
	case c.EnrichConcurrency <= 0:
		return fmt.Errorf("%w: enrich_concurrency must be positive", ErrInvalidConfig)
	case c.MatchTimeout <= 0:
		return fmt.Errorf("%w: match_timeout must be positive", ErrInvalidConfig)
	case c.RatingCache.FlushEvery <= 0:
		return fmt.Errorf("%w: rating_cache.flush_every must be positive", ErrInvalidConfig)
	case c.Plex.URL != "" && c.Plex.Token == "":
		return fmt.Errorf("%w: plex.token is required when plex.url is set", ErrInvalidConfig)
	}
	return nil
}
