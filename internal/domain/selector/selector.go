// Package selector narrows a catalog to a shuffled, enriched candidate list.
package selector

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trev125/FlickPick/internal/domain/combine"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/pkg/logger"
	"github.com/trev125/FlickPick/pkg/metrics"
)

// Enricher resolves third-party metadata for a title/year.
type Enricher interface {
	Enrich(ctx context.Context, title string, year int) (model.Enrichment, error)
}

// ShuffleFunc permutes n elements through swap.
type ShuffleFunc func(n int, swap func(i, j int))

// Selector runs filter -> shuffle -> budgeted enrichment -> rating filter -> shuffle.
type Selector struct {
	enricher    Enricher
	concurrency int
	shuffle     ShuffleFunc
	logger      logger.Logger
}

// New creates a Selector. A nil enricher leaves every candidate with an empty enrichment.
func New(enricher Enricher, opts ...Option) *Selector {
	s := &Selector{
		enricher:    enricher,
		concurrency: 8,
		shuffle:     rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns at most budget candidates drawn from catalog. The result holds
// copies; catalog is never modified. Enrichment failures are isolated per item,
// and a deadline that expires mid-enrichment leaves the late candidates with
// empty ratings. Only an explicit cancellation fails the selection.
func (s *Selector) Select(ctx context.Context, catalog []model.Movie, c model.Combined, budget int) ([]model.Movie, error) {
	filtered := Filter(catalog, c)
	s.shuffleMovies(filtered)

	if budget > len(filtered) {
		budget = len(filtered)
	}
	if budget < 0 {
		budget = 0
	}
	candidates := filtered[:budget]

	s.enrich(ctx, candidates)
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, err
	}

	out := candidates[:0]
	for _, m := range candidates {
		if PassesRatings(m.Enrichment, c.Ratings) {
			out = append(out, m)
		}
	}
	s.shuffleMovies(out)

	metrics.RecordMatchCandidates(len(filtered), len(out))
	s.log().Debug(ctx, "candidates selected",
		logger.Int("catalog", len(catalog)),
		logger.Int("filtered", len(filtered)),
		logger.Int("budget", budget),
		logger.Int("selected", len(out)),
	)
	return out, nil
}

// enrich fills each candidate's enrichment exactly once, bounded by the
// configured concurrency. It waits for every item; errors leave an empty record.
func (s *Selector) enrich(ctx context.Context, candidates []model.Movie) {
	if s.enricher == nil {
		for i := range candidates {
			candidates[i].Enrichment = &model.Enrichment{}
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range candidates {
		g.Go(func() error {
			m := &candidates[i]
			if ctx.Err() != nil {
				m.Enrichment = &model.Enrichment{}
				return nil
			}
			start := time.Now()
			e, err := s.enricher.Enrich(ctx, m.Title, m.Year)
			if err != nil {
				s.log().Warn(ctx, "enrichment failed",
					logger.String("title", m.Title),
					logger.Int("year", m.Year),
					logger.Duration("took", time.Since(start)),
					logger.Error(err),
				)
				e = model.Enrichment{}
			}
			e = e.Clone()
			m.Enrichment = &e
			return nil // enrichment errors are non-fatal
		})
	}
	_ = g.Wait()
}

func (s *Selector) shuffleMovies(movies []model.Movie) {
	s.shuffle(len(movies), func(i, j int) { movies[i], movies[j] = movies[j], movies[i] })
}

func (s *Selector) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Named("selector")
}

// Filter applies watched, genre, runtime and year constraints and returns copies.
func Filter(catalog []model.Movie, c model.Combined) []model.Movie {
	runtime, hasRuntime := c.Runtime.Get()
	year, hasYear := c.Year.Get()

	out := make([]model.Movie, 0, len(catalog))
	for _, m := range catalog {
		if m.Watched && !c.IncludeWatched {
			continue
		}
		if hasRuntime && !runtime.Contains(m.Runtime) {
			continue
		}
		if hasYear && !year.Contains(m.Year) {
			continue
		}
		if !matchesEveryGenreSet(m.Genres, c.UserGenres) {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

// matchesEveryGenreSet requires overlap with each participant's own set.
func matchesEveryGenreSet(genres []string, sets [][]string) bool {
	for _, set := range sets {
		if !overlaps(genres, set) {
			return false
		}
	}
	return true
}

func overlaps(genres, wanted []string) bool {
	for _, g := range genres {
		if combine.ContainsFold(wanted, g) {
			return true
		}
	}
	return false
}

// PassesRatings drops a movie only when a known rating is below its threshold.
func PassesRatings(e *model.Enrichment, t model.Thresholds) bool {
	for _, source := range model.RatingSources {
		floor := t.Get(source)
		if floor == nil {
			continue
		}
		if v := e.Rating(source); v != nil && *v < *floor {
			return false
		}
	}
	return true
}
