package enrich

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trev125/FlickPick/internal/adapters/upstream"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/pkg/metrics"
)

const notAvailable = "N/A"

// OMDb looks up IMDb, Rotten Tomatoes and Metacritic ratings plus plot,
// director and cast names.
type OMDb struct {
	client    *upstream.Client
	castLimit int
}

// NewOMDb wraps an upstream client configured with the OMDb base URL and apikey.
func NewOMDb(client *upstream.Client, castLimit int) *OMDb {
	if castLimit <= 0 {
		castLimit = 5
	}
	return &OMDb{client: client, castLimit: castLimit}
}

type omdbRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type omdbResponse struct {
	Response   string       `json:"Response"`
	Error      string       `json:"Error"`
	IMDbID     string       `json:"imdbID"`
	IMDbRating string       `json:"imdbRating"`
	Metascore  string       `json:"Metascore"`
	Plot       string       `json:"Plot"`
	Director   string       `json:"Director"`
	Actors     string       `json:"Actors"`
	Ratings    []omdbRating `json:"Ratings"`
}

// Lookup returns the primary facet for title/year.
func (o *OMDb) Lookup(ctx context.Context, title string, year int) (model.Enrichment, error) {
	start := time.Now()
	q := url.Values{"t": {title}}
	if year > 0 {
		q.Set("y", strconv.Itoa(year))
	}

	var resp omdbResponse
	err := o.client.GetJSON(ctx, "", q, &resp)
	if err == nil && !strings.EqualFold(resp.Response, "true") {
		err = omdbError(resp.Error)
	}
	metrics.RecordEnrichmentRequest("omdb", outcome(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return model.Enrichment{}, err
	}
	return o.convert(resp), nil
}

func omdbError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "limit"):
		return upstream.ErrRateLimited
	default:
		return upstream.ErrNotFound
	}
}

func (o *OMDb) convert(r omdbResponse) model.Enrichment {
	e := model.Enrichment{
		IMDbID:     optString(r.IMDbID),
		IMDbRating: parseFloat(r.IMDbRating),
		Plot:       optString(r.Plot),
		Director:   optString(r.Director),
		Metacritic: parseInt(r.Metascore),
	}
	for _, rating := range r.Ratings {
		switch rating.Source {
		case "Rotten Tomatoes":
			e.RottenTomatoes = parseInt(strings.TrimSuffix(rating.Value, "%"))
		case "Metacritic":
			if e.Metacritic == nil {
				score, _, _ := strings.Cut(rating.Value, "/")
				e.Metacritic = parseInt(score)
			}
		}
	}
	for _, name := range strings.Split(r.Actors, ",") {
		name = strings.TrimSpace(name)
		if name == "" || name == notAvailable {
			continue
		}
		e.Cast = append(e.Cast, model.Person{Name: name})
		if len(e.Cast) == o.castLimit {
			break
		}
	}
	return e
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == notAvailable {
		return nil
	}
	return &s
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &v
}
