package model

import (
	"fmt"
	"strings"
)

// RatingSource names a rating provider scale.
type RatingSource string

const (
	SourceIMDb           RatingSource = "imdb"           // 0-10
	SourceTMDB           RatingSource = "tmdb"           // 0-10
	SourceRottenTomatoes RatingSource = "rottenTomatoes" // 0-100
	SourceMetacritic     RatingSource = "metacritic"     // 0-100
)

// RatingSources lists every source in a fixed order.
var RatingSources = []RatingSource{SourceIMDb, SourceTMDB, SourceRottenTomatoes, SourceMetacritic}

func (s RatingSource) maxScore() float64 {
	if s == SourceRottenTomatoes || s == SourceMetacritic {
		return 100
	}
	return 10
}

// Thresholds holds a minimum rating per source. Nil means unconstrained.
type Thresholds struct {
	IMDb           *float64 `json:"imdb,omitempty"`
	TMDB           *float64 `json:"tmdb,omitempty"`
	RottenTomatoes *float64 `json:"rottenTomatoes,omitempty"`
	Metacritic     *float64 `json:"metacritic,omitempty"`
}

// Get returns the threshold for source.
func (t Thresholds) Get(source RatingSource) *float64 {
	switch source {
	case SourceIMDb:
		return t.IMDb
	case SourceTMDB:
		return t.TMDB
	case SourceRottenTomatoes:
		return t.RottenTomatoes
	case SourceMetacritic:
		return t.Metacritic
	}
	return nil
}

// Set replaces the threshold for source.
func (t *Thresholds) Set(source RatingSource, v *float64) {
	switch source {
	case SourceIMDb:
		t.IMDb = v
	case SourceTMDB:
		t.TMDB = v
	case SourceRottenTomatoes:
		t.RottenTomatoes = v
	case SourceMetacritic:
		t.Metacritic = v
	}
}

// Range is an inclusive integer interval. Min > Max matches nothing.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Empty reports whether the interval is inverted.
func (r Range) Empty() bool { return r.Min > r.Max }

// Contains reports whether v lies within the interval.
func (r Range) Contains(v int) bool { return v >= r.Min && v <= r.Max }

// Constraint is an optional value: None means unconstrained.
type Constraint[T any] struct {
	value T
	set   bool
}

// Some wraps v as a present constraint.
func Some[T any](v T) Constraint[T] { return Constraint[T]{value: v, set: true} }

// None is the absent constraint.
func None[T any]() Constraint[T] { return Constraint[T]{} }

// Get returns the value and whether it is present.
func (c Constraint[T]) Get() (T, bool) { return c.value, c.set }

// IsSome reports whether the constraint is present.
func (c Constraint[T]) IsSome() bool { return c.set }

// Ptr returns a pointer copy of the value, or nil for None.
func (c Constraint[T]) Ptr() *T {
	if !c.set {
		return nil
	}
	v := c.value
	return &v
}

// PreferenceSet is one participant's taste constraints.
type PreferenceSet struct {
	Genres         []string   `json:"genres"`
	Ratings        Thresholds `json:"ratings"`
	Runtime        *Range     `json:"runtime,omitempty"`
	Year           *Range     `json:"year,omitempty"`
	IncludeWatched bool       `json:"includeWatched"`
}

// Validate rejects inverted ranges and out-of-scale thresholds.
func (p PreferenceSet) Validate() error {
	if p.Runtime != nil && p.Runtime.Empty() {
		return fmt.Errorf("%w: runtime min %d > max %d", ErrInvalidRange, p.Runtime.Min, p.Runtime.Max)
	}
	if p.Year != nil && p.Year.Empty() {
		return fmt.Errorf("%w: year min %d > max %d", ErrInvalidRange, p.Year.Min, p.Year.Max)
	}
	for _, s := range RatingSources {
		v := p.Ratings.Get(s)
		if v != nil && (*v < 0 || *v > s.maxScore()) {
			return fmt.Errorf("%w: %s %.1f", ErrInvalidThreshold, s, *v)
		}
	}
	for _, g := range p.Genres {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("%w: empty genre", ErrInvalidGenre)
		}
	}
	return nil
}

// Combined is the merged constraint used to filter the catalog.
type Combined struct {
	// Genres is the union of every participant's genres.
	Genres []string
	// UserGenres keeps each participant's non-empty genre set; a movie must
	// overlap all of them.
	UserGenres     [][]string
	Runtime        Constraint[Range]
	Year           Constraint[Range]
	Ratings        Thresholds
	IncludeWatched bool
	Participants   int
}

// Skipped flags dimensions no participant constrained.
type Skipped struct {
	Genres         bool `json:"genres"`
	Runtime        bool `json:"runtime"`
	Year           bool `json:"year"`
	IMDb           bool `json:"imdb"`
	TMDB           bool `json:"tmdb"`
	RottenTomatoes bool `json:"rottenTomatoes"`
	Metacritic     bool `json:"metacritic"`
}

// Set marks source as skipped or not.
func (s *Skipped) Set(source RatingSource, v bool) {
	switch source {
	case SourceIMDb:
		s.IMDb = v
	case SourceTMDB:
		s.TMDB = v
	case SourceRottenTomatoes:
		s.RottenTomatoes = v
	case SourceMetacritic:
		s.Metacritic = v
	}
}

// MatchedCriteria summarises the combined constraint for display.
type MatchedCriteria struct {
	Genres         []string   `json:"genres"`
	CommonGenres   []string   `json:"commonGenres"`
	Runtime        *Range     `json:"runtime"`
	Year           *Range     `json:"year"`
	Ratings        Thresholds `json:"ratings"`
	IncludeWatched bool       `json:"includeWatched"`
	Skipped        Skipped    `json:"skipped"`
}
