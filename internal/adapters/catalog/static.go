package catalog

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/trev125/FlickPick/internal/domain/model"
)

// Static serves a fixed movie list. Sections are ignored.
type Static struct {
	movies []model.Movie
}

// NewStatic creates a provider over movies.
func NewStatic(movies []model.Movie) *Static {
	return &Static{movies: cloneMovies(movies)}
}

// LoadStatic reads a JSON array of movies from path. An empty array is an error.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var movies []model.Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("load catalog file %s: %w", path, ErrEmptyCatalog)
	}
	return NewStatic(movies), nil
}

// ListCatalog returns a copy of the movie list.
func (s *Static) ListCatalog(ctx context.Context, section string) ([]model.Movie, error) {
	return cloneMovies(s.movies), nil
}

// ListGenres returns the sorted, de-duplicated genres of the movie list.
func (s *Static) ListGenres(ctx context.Context, section string) ([]string, error) {
	return genresOf(s.movies), nil
}

func genresOf(movies []model.Movie) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range movies {
		for _, g := range m.Genres {
			k := strings.ToLower(strings.TrimSpace(g))
			if _, ok := seen[k]; ok || k == "" {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, strings.TrimSpace(g))
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}

func cloneMovies(movies []model.Movie) []model.Movie {
	out := make([]model.Movie, len(movies))
	for i := range movies {
		out[i] = movies[i].Clone()
	}
	return out
}
