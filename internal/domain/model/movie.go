// Package model contains domain models passed between layers.
package model

import "slices"

// EnrichmentVersion is the current schema version of an Enrichment record.
//
//	1: OMDb ratings, plot, director, cast names
//	2: adds TMDB id/rating, poster, backdrop and cast images
//	3: adds keywords and collection
const EnrichmentVersion = 3

// Movie is a catalog item. Enrichment stays nil until selection fills it.
type Movie struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Year       int         `json:"year"`
	Genres     []string    `json:"genres"`
	Runtime    int         `json:"runtime"` // minutes
	Watched    bool        `json:"watched"`
	Summary    string      `json:"summary,omitempty"`
	Thumb      string      `json:"thumb,omitempty"`
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// Clone returns a deep copy so session lists never share backing arrays.
func (m Movie) Clone() Movie {
	out := m
	out.Genres = slices.Clone(m.Genres)
	if m.Enrichment != nil {
		e := m.Enrichment.Clone()
		out.Enrichment = &e
	}
	return out
}

// Person is a cast member.
type Person struct {
	Name  string  `json:"name"`
	Role  string  `json:"role,omitempty"`
	Image *string `json:"image"`
}

// Enrichment holds third-party metadata for one title/year. Nil means unknown.
type Enrichment struct {
	Version        int      `json:"version"`
	IMDbID         *string  `json:"imdbId"`
	IMDbRating     *float64 `json:"imdbRating"`
	RottenTomatoes *int     `json:"rottenTomatoes"`
	Metacritic     *int     `json:"metacritic"`
	Plot           *string  `json:"plot"`
	Director       *string  `json:"director"`
	TMDBID         *int     `json:"tmdbId"`
	TMDBRating     *float64 `json:"tmdbRating"`
	Poster         *string  `json:"poster"`
	Backdrop       *string  `json:"backdrop"`
	Cast           []Person `json:"cast"`
	Keywords       []string `json:"keywords"`
	Collection     *string  `json:"collection"`
}

// Clone returns a deep copy of e.
func (e Enrichment) Clone() Enrichment {
	out := e
	out.Cast = slices.Clone(e.Cast)
	out.Keywords = slices.Clone(e.Keywords)
	return out
}

// PrimaryMissing reports whether the OMDb lookup produced nothing usable,
// which is how a rate-limited lookup ends up persisted.
func (e Enrichment) PrimaryMissing() bool {
	return e.IMDbRating == nil && e.IMDbID == nil
}

// Merge fills every nil field of e from src. Known values are never replaced.
func (e *Enrichment) Merge(src Enrichment) {
	fillPtr(&e.IMDbID, src.IMDbID)
	fillPtr(&e.IMDbRating, src.IMDbRating)
	fillPtr(&e.RottenTomatoes, src.RottenTomatoes)
	fillPtr(&e.Metacritic, src.Metacritic)
	fillPtr(&e.Plot, src.Plot)
	fillPtr(&e.Director, src.Director)
	fillPtr(&e.TMDBID, src.TMDBID)
	fillPtr(&e.TMDBRating, src.TMDBRating)
	fillPtr(&e.Poster, src.Poster)
	fillPtr(&e.Backdrop, src.Backdrop)
	fillPtr(&e.Collection, src.Collection)
	if len(e.Keywords) == 0 && len(src.Keywords) > 0 {
		e.Keywords = slices.Clone(src.Keywords)
	}
	e.mergeCast(src.Cast)
}

func (e *Enrichment) mergeCast(src []Person) {
	if len(e.Cast) == 0 {
		e.Cast = slices.Clone(src)
		return
	}
	byName := make(map[string]Person, len(src))
	for _, p := range src {
		byName[p.Name] = p
	}
	for i := range e.Cast {
		other, ok := byName[e.Cast[i].Name]
		if !ok {
			continue
		}
		fillPtr(&e.Cast[i].Image, other.Image)
		if e.Cast[i].Role == "" {
			e.Cast[i].Role = other.Role
		}
	}
}

// Rating returns the score for source on the threshold scale, or nil.
func (e *Enrichment) Rating(source RatingSource) *float64 {
	if e == nil {
		return nil
	}
	switch source {
	case SourceIMDb:
		return e.IMDbRating
	case SourceTMDB:
		return e.TMDBRating
	case SourceRottenTomatoes:
		return intRating(e.RottenTomatoes)
	case SourceMetacritic:
		return intRating(e.Metacritic)
	}
	return nil
}

func intRating(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func fillPtr[T any](dst **T, src *T) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

// Facet selects parts of an enrichment lookup.
type Facet uint8

const (
	// FacetPrimary covers IMDb id/rating, Rotten Tomatoes, Metacritic, plot, director and cast names.
	FacetPrimary Facet = 1 << iota
	// FacetSecondary covers TMDB id and rating.
	FacetSecondary
	// FacetImages covers poster, backdrop and cast images.
	FacetImages
	// FacetKeywords covers keywords and collection.
	FacetKeywords

	FacetAll = FacetPrimary | FacetSecondary | FacetImages | FacetKeywords
)

// Has reports whether all bits of o are set in f.
func (f Facet) Has(o Facet) bool { return f&o == o }

// MissingFacets reports which facets a record of the given version lacks.
func MissingFacets(version int) Facet {
	switch {
	case version >= EnrichmentVersion:
		return 0
	case version == 2:
		return FacetKeywords
	default:
		return FacetSecondary | FacetImages | FacetKeywords
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
