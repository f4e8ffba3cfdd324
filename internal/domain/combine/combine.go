// Package combine merges participant preferences into one catalog constraint.
package combine

import (
	"slices"
	"strings"

	"github.com/trev125/FlickPick/internal/domain/model"
)

// Combine merges one or two preference sets. It is pure: the same inputs
// always produce the same outputs and the inputs are never modified.
//
// A single participant's preferences are used verbatim. Two participants get
// the union of their genres, the intersection of their runtime and year
// ranges, the stricter of each rating threshold and include-watched only if
// both allow it.
func Combine(prefs ...model.PreferenceSet) (model.Combined, model.MatchedCriteria) {
	var c model.Combined
	c.Participants = len(prefs)

	switch len(prefs) {
	case 0:
		c.IncludeWatched = true
	case 1:
		p := prefs[0]
		c.Genres = unionFold(p.Genres)
		c.Runtime = fromPtr(p.Runtime)
		c.Year = fromPtr(p.Year)
		c.Ratings = cloneThresholds(p.Ratings)
		c.IncludeWatched = p.IncludeWatched
	default:
		c.IncludeWatched = true
		c.Runtime = model.None[model.Range]()
		c.Year = model.None[model.Range]()
		genreSets := make([][]string, 0, len(prefs))
		for _, p := range prefs {
			genreSets = append(genreSets, p.Genres)
			c.Runtime = intersect(c.Runtime, p.Runtime)
			c.Year = intersect(c.Year, p.Year)
			c.IncludeWatched = c.IncludeWatched && p.IncludeWatched
		}
		c.Genres = unionFold(genreSets...)
		c.Ratings = strictest(prefs)
	}

	for _, p := range prefs {
		if len(p.Genres) > 0 {
			c.UserGenres = append(c.UserGenres, slices.Clone(p.Genres))
		}
	}

	return c, criteria(c, prefs)
}

func criteria(c model.Combined, prefs []model.PreferenceSet) model.MatchedCriteria {
	mc := model.MatchedCriteria{
		Genres:         slices.Clone(c.Genres),
		CommonGenres:   commonGenres(prefs),
		Runtime:        c.Runtime.Ptr(),
		Year:           c.Year.Ptr(),
		Ratings:        cloneThresholds(c.Ratings),
		IncludeWatched: c.IncludeWatched,
	}

	mc.Skipped.Genres = true
	mc.Skipped.Runtime = true
	mc.Skipped.Year = true
	for _, s := range model.RatingSources {
		mc.Skipped.Set(s, true)
	}
	for _, p := range prefs {
		if len(p.Genres) > 0 {
			mc.Skipped.Genres = false
		}
		if p.Runtime != nil {
			mc.Skipped.Runtime = false
		}
		if p.Year != nil {
			mc.Skipped.Year = false
		}
		for _, s := range model.RatingSources {
			if v := p.Ratings.Get(s); v != nil && *v > 0 {
				mc.Skipped.Set(s, false)
			}
		}
	}
	return mc
}

// commonGenres is the intersection of every participant's genres, falling
// back to the union when the intersection is empty.
func commonGenres(prefs []model.PreferenceSet) []string {
	if len(prefs) < 2 {
		if len(prefs) == 1 {
			return unionFold(prefs[0].Genres)
		}
		return nil
	}
	common := unionFold(prefs[0].Genres)
	for _, p := range prefs[1:] {
		common = slices.DeleteFunc(common, func(g string) bool {
			return !ContainsFold(p.Genres, g)
		})
	}
	if len(common) > 0 {
		return common
	}
	sets := make([][]string, 0, len(prefs))
	for _, p := range prefs {
		sets = append(sets, p.Genres)
	}
	return unionFold(sets...)
}

// strictest takes max(t1 ?? 0, t2 ?? 0) per source, with 0 meaning unconstrained.
func strictest(prefs []model.PreferenceSet) model.Thresholds {
	var out model.Thresholds
	for _, s := range model.RatingSources {
		best := 0.0
		for _, p := range prefs {
			if v := p.Ratings.Get(s); v != nil && *v > best {
				best = *v
			}
		}
		if best > 0 {
			out.Set(s, model.Ptr(best))
		}
	}
	return out
}

func intersect(acc model.Constraint[model.Range], r *model.Range) model.Constraint[model.Range] {
	if r == nil {
		return acc
	}
	cur, ok := acc.Get()
	if !ok {
		return model.Some(*r)
	}
	// an inverted result is kept: it matches nothing
	return model.Some(model.Range{Min: max(cur.Min, r.Min), Max: min(cur.Max, r.Max)})
}

func fromPtr(r *model.Range) model.Constraint[model.Range] {
	if r == nil {
		return model.None[model.Range]()
	}
	return model.Some(*r)
}

func cloneThresholds(t model.Thresholds) model.Thresholds {
	var out model.Thresholds
	for _, s := range model.RatingSources {
		if v := t.Get(s); v != nil {
			out.Set(s, model.Ptr(*v))
		}
	}
	return out
}

// unionFold merges genre lists case-insensitively, keeping first spelling and order.
func unionFold(sets ...[]string) []string {
	var out []string
	for _, set := range sets {
		for _, g := range set {
			g = strings.TrimSpace(g)
			if g == "" || ContainsFold(out, g) {
				continue
			}
			out = append(out, g)
		}
	}
	return out
}

// ContainsFold reports whether list holds tag, ignoring case and surrounding space.
func ContainsFold(list []string, tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), tag) {
			return true
		}
	}
	return false
}
