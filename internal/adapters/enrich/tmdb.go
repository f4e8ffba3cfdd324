package enrich

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trev125/FlickPick/internal/adapters/upstream"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/pkg/metrics"
)

// TMDB resolves TMDB ratings, artwork, keywords, collections and person images.
type TMDB struct {
	client    *upstream.Client
	imageBase string
	castLimit int
}

// NewTMDB wraps an upstream client configured with the TMDB v3 base URL and api_key.
func NewTMDB(client *upstream.Client, imageBase string, castLimit int) *TMDB {
	if castLimit <= 0 {
		castLimit = 5
	}
	return &TMDB{
		client:    client,
		imageBase: strings.TrimSuffix(imageBase, "/"),
		castLimit: castLimit,
	}
}

type tmdbSearch struct {
	Results []struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
		ProfilePath string `json:"profile_path"`
	} `json:"results"`
}

type tmdbCast struct {
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type tmdbMovie struct {
	ID           int     `json:"id"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Collection   *struct {
		Name string `json:"name"`
	} `json:"belongs_to_collection"`
	Credits struct {
		Cast []tmdbCast `json:"cast"`
	} `json:"credits"`
	Keywords struct {
		Keywords []struct {
			Name string `json:"name"`
		} `json:"keywords"`
	} `json:"keywords"`
}

// Details is the TMDB view of one movie.
type Details struct {
	Enrichment model.Enrichment
	// Cast carries TMDB's billing order with profile images resolved.
	Cast []model.Person
}

// Lookup searches for title/year and loads its details.
func (t *TMDB) Lookup(ctx context.Context, title string, year int) (Details, error) {
	id, err := t.search(ctx, title, year)
	if err != nil {
		return Details{}, err
	}

	start := time.Now()
	var m tmdbMovie
	err = t.client.GetJSON(ctx, "/movie/"+strconv.Itoa(id), url.Values{
		"append_to_response": {"credits,keywords"},
	}, &m)
	metrics.RecordEnrichmentRequest("tmdb", outcome(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return Details{}, err
	}
	return t.convert(m), nil
}

func (t *TMDB) search(ctx context.Context, title string, year int) (int, error) {
	start := time.Now()
	q := url.Values{"query": {title}}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}
	var res tmdbSearch
	err := t.client.GetJSON(ctx, "/search/movie", q, &res)
	if err == nil && len(res.Results) == 0 {
		err = upstream.ErrNotFound
	}
	metrics.RecordEnrichmentRequest("tmdb_search", outcome(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return 0, err
	}
	return res.Results[0].ID, nil
}

// PersonImage returns the profile image URL for name, or nil when TMDB has none.
func (t *TMDB) PersonImage(ctx context.Context, name string) (*string, error) {
	start := time.Now()
	var res tmdbSearch
	err := t.client.GetJSON(ctx, "/search/person", url.Values{"query": {name}}, &res)
	metrics.RecordEnrichmentRequest("tmdb_person", outcome(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, nil
	}
	return t.image(res.Results[0].ProfilePath), nil
}

func (t *TMDB) convert(m tmdbMovie) Details {
	e := model.Enrichment{
		TMDBID:   model.Ptr(m.ID),
		Poster:   t.image(m.PosterPath),
		Backdrop: t.image(m.BackdropPath),
		Keywords: []string{},
	}
	if m.VoteCount > 0 {
		e.TMDBRating = model.Ptr(math.Round(m.VoteAverage*10) / 10)
	}
	if m.Collection != nil && m.Collection.Name != "" {
		e.Collection = model.Ptr(m.Collection.Name)
	}
	for _, k := range m.Keywords.Keywords {
		e.Keywords = append(e.Keywords, k.Name)
	}

	d := Details{Enrichment: e}
	for _, c := range m.Credits.Cast {
		if len(d.Cast) == t.castLimit {
			break
		}
		d.Cast = append(d.Cast, model.Person{
			Name:  c.Name,
			Role:  c.Character,
			Image: t.image(c.ProfilePath),
		})
	}
	return d
}

func (t *TMDB) image(path string) *string {
	if path == "" {
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return model.Ptr(t.imageBase + path)
}
