// Package enrich fetches third-party movie metadata from OMDb and TMDB.
package enrich

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trev125/FlickPick/internal/adapters/upstream"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/pkg/logger"
)

// Client combines the OMDb and TMDB lookups. Either provider may be nil.
type Client struct {
	omdb   *OMDb
	tmdb   *TMDB
	people *personMemo
	logger logger.Logger

	imageConcurrency int
}

// NewClient creates a Client.
func NewClient(omdb *OMDb, tmdb *TMDB, opts ...Option) *Client {
	c := &Client{
		omdb:             omdb,
		tmdb:             tmdb,
		people:           newPersonMemo(),
		imageConcurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("enrich")
	}
	return c
}

// Fetch looks up the requested facets in parallel. Provider failures leave
// the affected fields nil; the only error returned is ctx's.
func (c *Client) Fetch(ctx context.Context, title string, year int, facets model.Facet) (model.Enrichment, error) {
	var (
		mu       sync.Mutex
		primary  model.Enrichment
		details  Details
		haveTMDB bool
	)

	var g errgroup.Group
	if facets.Has(model.FacetPrimary) && c.omdb != nil {
		g.Go(func() error {
			e, err := c.omdb.Lookup(ctx, title, year)
			if err != nil {
				c.warn(ctx, "omdb", title, year, err)
				return nil
			}
			mu.Lock()
			primary = e
			mu.Unlock()
			return nil
		})
	}
	if facets&(model.FacetSecondary|model.FacetImages|model.FacetKeywords) != 0 && c.tmdb != nil {
		g.Go(func() error {
			d, err := c.tmdb.Lookup(ctx, title, year)
			if err != nil {
				c.warn(ctx, "tmdb", title, year, err)
				return nil
			}
			mu.Lock()
			details, haveTMDB = d, true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := primary
	if haveTMDB {
		t := details.Enrichment
		if facets.Has(model.FacetSecondary) {
			out.TMDBID, out.TMDBRating = t.TMDBID, t.TMDBRating
		}
		if facets.Has(model.FacetImages) {
			out.Poster, out.Backdrop = t.Poster, t.Backdrop
		}
		if facets.Has(model.FacetKeywords) {
			out.Keywords, out.Collection = t.Keywords, t.Collection
		}
	}
	if facets.Has(model.FacetImages) {
		out.Cast = c.castImages(ctx, out.Cast, details.Cast)
	}

	if err := ctx.Err(); err != nil {
		return model.Enrichment{}, err
	}
	return out, nil
}

// castImages attaches images to cast. Names TMDB billed already carry an
// image; the rest go through the person memo. With no cast names from OMDb
// the TMDB billing is used instead.
func (c *Client) castImages(ctx context.Context, cast, billed []model.Person) []model.Person {
	if len(cast) == 0 {
		return billed
	}
	known := make(map[string]model.Person, len(billed))
	for _, p := range billed {
		known[p.Name] = p
	}

	out := make([]model.Person, len(cast))
	copy(out, cast)

	var g errgroup.Group
	g.SetLimit(c.imageConcurrency)
	for i := range out {
		if p, ok := known[out[i].Name]; ok && p.Image != nil {
			out[i].Image = p.Image
			if out[i].Role == "" {
				out[i].Role = p.Role
			}
			continue
		}
		if c.tmdb == nil || out[i].Image != nil {
			continue
		}
		g.Go(func() error {
			img, err := c.people.get(ctx, out[i].Name, c.tmdb.PersonImage)
			if err != nil {
				c.logger.Debug(ctx, "person image lookup failed",
					logger.String("name", out[i].Name),
					logger.Error(err),
				)
				return nil
			}
			out[i].Image = img
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// KnownPeople returns the number of memoized person images.
func (c *Client) KnownPeople() int { return c.people.len() }

func (c *Client) warn(ctx context.Context, provider, title string, year int, err error) {
	if errors.Is(err, upstream.ErrNotFound) {
		c.logger.Debug(ctx, "title not found",
			logger.String("provider", provider),
			logger.String("title", title),
			logger.Int("year", year),
		)
		return
	}
	c.logger.Warn(ctx, "enrichment lookup failed",
		logger.String("provider", provider),
		logger.String("title", title),
		logger.Int("year", year),
		logger.Error(err),
	)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, upstream.ErrNotFound):
		return "not_found"
	case errors.Is(err, upstream.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, upstream.ErrUnavailable):
		return "circuit_open"
	default:
		return "error"
	}
}
