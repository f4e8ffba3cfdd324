// Package catalog lists the movies and genres of a media library.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trev125/FlickPick/internal/adapters/upstream"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/pkg/logger"
	"github.com/trev125/FlickPick/pkg/metrics"
)

// Plex reads a movie library section from a Plex Media Server. Successful
// listings are kept as snapshots and served while fresh, and served stale
// when Plex cannot be reached.
type Plex struct {
	client *upstream.Client
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger

	mu             sync.Mutex
	snapshots      map[string]snapshot
	defaultSection string

	group singleflight.Group
}

type snapshot struct {
	movies  []model.Movie
	fetched time.Time
}

// NewPlex creates a provider. The client must send the X-Plex-Token header.
func NewPlex(client *upstream.Client, opts ...Option) *Plex {
	p := &Plex{
		client:    client,
		ttl:       10 * time.Minute,
		now:       time.Now,
		snapshots: make(map[string]snapshot),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named("plex")
	}
	return p
}

type plexSections struct {
	MediaContainer struct {
		Directory []struct {
			Key   string `json:"key"`
			Title string `json:"title"`
			Type  string `json:"type"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

type plexTag struct {
	Tag string `json:"tag"`
}

type plexItem struct {
	RatingKey string    `json:"ratingKey"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Year      int       `json:"year"`
	Duration  int64     `json:"duration"`
	ViewCount int       `json:"viewCount"`
	Summary   string    `json:"summary"`
	Thumb     string    `json:"thumb"`
	Genre     []plexTag `json:"Genre"`
}

type plexContent struct {
	MediaContainer struct {
		Size     int        `json:"size"`
		Metadata []plexItem `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexGenres struct {
	MediaContainer struct {
		Directory []struct {
			Title string `json:"title"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

// ListCatalog returns every movie of section; an empty section selects the
// first movie section of the server.
func (p *Plex) ListCatalog(ctx context.Context, section string) ([]model.Movie, error) {
	p.mu.Lock()
	snap, ok := p.snapshots[section]
	p.mu.Unlock()
	if ok && p.now().Sub(snap.fetched) < p.ttl {
		metrics.RecordCatalogFetch("plex", "cached")
		return cloneMovies(snap.movies), nil
	}

	start := time.Now()
	v, err, _ := p.group.Do(section, func() (any, error) {
		return p.fetchCatalog(ctx, section)
	})
	metrics.RecordCatalogFetchDuration(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if ok {
			metrics.RecordCatalogFetch("plex", "stale")
			p.logger.Warn(ctx, "plex unavailable, serving stale catalog",
				logger.String("section", section),
				logger.Duration("age", p.now().Sub(snap.fetched)),
				logger.Error(err),
			)
			return cloneMovies(snap.movies), nil
		}
		metrics.RecordCatalogFetch("plex", "error")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	movies := v.([]model.Movie)
	metrics.RecordCatalogFetch("plex", "fresh")
	return cloneMovies(movies), nil
}

func (p *Plex) fetchCatalog(ctx context.Context, section string) ([]model.Movie, error) {
	key, err := p.resolveSection(ctx, section)
	if err != nil {
		return nil, err
	}

	var content plexContent
	if err := p.client.GetJSON(ctx, "/library/sections/"+url.PathEscape(key)+"/all", url.Values{"type": {"1"}}, &content); err != nil {
		return nil, fmt.Errorf("list section %s: %w", key, err)
	}

	movies := make([]model.Movie, 0, len(content.MediaContainer.Metadata))
	for _, item := range content.MediaContainer.Metadata {
		if item.Type != "" && item.Type != "movie" {
			continue
		}
		movies = append(movies, toMovie(item))
	}

	p.mu.Lock()
	p.snapshots[section] = snapshot{movies: movies, fetched: p.now()}
	p.mu.Unlock()

	p.logger.Info(ctx, "catalog refreshed",
		logger.String("section", key),
		logger.Int("movies", len(movies)),
	)
	return movies, nil
}

// resolveSection maps a section key or title to a key. Empty selects the
// first movie section, which is remembered.
func (p *Plex) resolveSection(ctx context.Context, section string) (string, error) {
	if section != "" && isSectionKey(section) {
		return section, nil
	}
	if section == "" {
		p.mu.Lock()
		key := p.defaultSection
		p.mu.Unlock()
		if key != "" {
			return key, nil
		}
	}

	var sections plexSections
	if err := p.client.GetJSON(ctx, "/library/sections", nil, &sections); err != nil {
		return "", fmt.Errorf("list sections: %w", err)
	}
	for _, d := range sections.MediaContainer.Directory {
		if section == "" && d.Type == "movie" {
			p.mu.Lock()
			p.defaultSection = d.Key
			p.mu.Unlock()
			return d.Key, nil
		}
		if section != "" && strings.EqualFold(d.Title, section) {
			return d.Key, nil
		}
	}
	if section == "" {
		return "", fmt.Errorf("%w: no movie section", ErrSectionNotFound)
	}
	return "", fmt.Errorf("%w: %q", ErrSectionNotFound, section)
}

// ListGenres returns the genre vocabulary of section. When Plex fails the
// genres of the last snapshot are used.
func (p *Plex) ListGenres(ctx context.Context, section string) ([]string, error) {
	genres, err := p.fetchGenres(ctx, section)
	if err == nil {
		return genres, nil
	}

	p.mu.Lock()
	snap, ok := p.snapshots[section]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p.logger.Warn(ctx, "plex genre listing failed, using snapshot", logger.Error(err))
	return genresOf(snap.movies), nil
}

func (p *Plex) fetchGenres(ctx context.Context, section string) ([]string, error) {
	key, err := p.resolveSection(ctx, section)
	if err != nil {
		return nil, err
	}
	var res plexGenres
	if err := p.client.GetJSON(ctx, "/library/sections/"+url.PathEscape(key)+"/genre", nil, &res); err != nil {
		return nil, fmt.Errorf("list genres of section %s: %w", key, err)
	}
	out := make([]string, 0, len(res.MediaContainer.Directory))
	for _, d := range res.MediaContainer.Directory {
		if d.Title != "" {
			out = append(out, d.Title)
		}
	}
	return out, nil
}

func toMovie(item plexItem) model.Movie {
	m := model.Movie{
		ID:      item.RatingKey,
		Title:   item.Title,
		Year:    item.Year,
		Runtime: int(item.Duration / 60000),
		Watched: item.ViewCount > 0,
		Summary: item.Summary,
		Thumb:   item.Thumb,
		Genres:  make([]string, 0, len(item.Genre)),
	}
	for _, g := range item.Genre {
		m.Genres = append(m.Genres, g.Tag)
	}
	return m
}

func isSectionKey(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
