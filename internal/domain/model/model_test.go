package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	model "github.com/trev125/FlickPick/internal/domain/model"
)

func TestClampSize(t *testing.T) {
	convey.Convey("Given requested session sizes", t, func() {
		convey.Convey("Then they should be clamped into bounds", func() {
			convey.So(model.ClampSize(0), convey.ShouldEqual, model.DefaultSessionSize)
			convey.So(model.ClampSize(-4), convey.ShouldEqual, model.DefaultSessionSize)
			convey.So(model.ClampSize(2), convey.ShouldEqual, model.MinSessionSize)
			convey.So(model.ClampSize(5), convey.ShouldEqual, 5)
			convey.So(model.ClampSize(42), convey.ShouldEqual, 42)
			convey.So(model.ClampSize(500), convey.ShouldEqual, model.MaxSessionSize)
		})
	})
}

func TestSessionState(t *testing.T) {
	convey.Convey("Given a new session", t, func() {
		s := model.NewSession("ABC234", 10, time.Now())

		convey.Convey("Then it should start in created", func() {
			convey.So(s.State(), convey.ShouldEqual, model.StateCreated)
			convey.So(s.AllSubmitted(), convey.ShouldBeFalse)
			convey.So(s.AllVotingComplete(), convey.ShouldBeFalse)
		})

		convey.Convey("When two users join and one submits", func() {
			s.Users["u1"] = &model.UserState{ID: "u1", Votes: map[string]bool{}}
			s.Users["u2"] = &model.UserState{ID: "u2", Votes: map[string]bool{}}
			s.Order = []string{"u1", "u2"}
			convey.So(s.State(), convey.ShouldEqual, model.StateAwaitingUsers)

			s.Users["u1"].Preferences = &model.PreferenceSet{}

			convey.Convey("Then it should await preferences", func() {
				convey.So(s.State(), convey.ShouldEqual, model.StateAwaitingPreferences)
			})

			convey.Convey("And after both submit and vote it should progress", func() {
				s.Users["u2"].Preferences = &model.PreferenceSet{}
				convey.So(s.State(), convey.ShouldEqual, model.StateAwaitingPreferences)

				s.Matched = true
				s.Candidates = []model.Movie{{ID: "1"}, {ID: "2"}}
				convey.So(s.State(), convey.ShouldEqual, model.StateMatched)

				s.Users["u1"].Votes["1"] = true
				convey.So(s.State(), convey.ShouldEqual, model.StateVoting)

				s.Users["u1"].Votes["2"] = false
				s.Users["u2"].Votes["1"] = true
				s.Users["u2"].Votes["2"] = true
				convey.So(s.State(), convey.ShouldEqual, model.StateAllVotingComplete)
				convey.So(s.OrderedUsers()[0].ID, convey.ShouldEqual, "u1")
			})
		})

		convey.Convey("When checking expiry", func() {
			convey.So(s.Expired(s.CreatedAt.Add(23*time.Hour), 24*time.Hour), convey.ShouldBeFalse)
			convey.So(s.Expired(s.CreatedAt.Add(25*time.Hour), 24*time.Hour), convey.ShouldBeTrue)
		})
	})
}

func TestEnrichmentMerge(t *testing.T) {
	convey.Convey("Given a legacy enrichment with known IMDb data", t, func() {
		e := model.Enrichment{
			Version:    1,
			IMDbID:     model.Ptr("tt1049413"),
			IMDbRating: model.Ptr(8.3),
			Cast:       []model.Person{{Name: "Ed Asner"}},
		}

		convey.Convey("When merging a fresh lookup", func() {
			e.Merge(model.Enrichment{
				IMDbRating: model.Ptr(1.0),
				TMDBRating: model.Ptr(7.9),
				Poster:     model.Ptr("https://img/up.jpg"),
				Cast:       []model.Person{{Name: "Ed Asner", Role: "Carl", Image: model.Ptr("https://img/ed.jpg")}},
				Keywords:   []string{"balloon"},
			})

			convey.Convey("Then only missing fields should be filled", func() {
				convey.So(*e.IMDbRating, convey.ShouldEqual, 8.3)
				convey.So(*e.TMDBRating, convey.ShouldEqual, 7.9)
				convey.So(*e.Poster, convey.ShouldEqual, "https://img/up.jpg")
				convey.So(*e.Cast[0].Image, convey.ShouldEqual, "https://img/ed.jpg")
				convey.So(e.Cast[0].Role, convey.ShouldEqual, "Carl")
				convey.So(e.Keywords, convey.ShouldResemble, []string{"balloon"})
			})
		})

		convey.Convey("Then rating lookups should use a common scale type", func() {
			e.RottenTomatoes = model.Ptr(98)
			convey.So(*e.Rating(model.SourceRottenTomatoes), convey.ShouldEqual, 98.0)
			convey.So(e.Rating(model.SourceMetacritic), convey.ShouldBeNil)
			convey.So(e.PrimaryMissing(), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given schema versions", t, func() {
		convey.Convey("Then missing facets should shrink as the version grows", func() {
			convey.So(model.MissingFacets(1).Has(model.FacetSecondary|model.FacetImages|model.FacetKeywords), convey.ShouldBeTrue)
			convey.So(model.MissingFacets(1).Has(model.FacetPrimary), convey.ShouldBeFalse)
			convey.So(model.MissingFacets(2), convey.ShouldEqual, model.FacetKeywords)
			convey.So(model.MissingFacets(model.EnrichmentVersion), convey.ShouldEqual, model.Facet(0))
		})
	})
}

func TestMovieClone(t *testing.T) {
	convey.Convey("Given an enriched movie", t, func() {
		m := model.Movie{ID: "1", Genres: []string{"Drama"}, Enrichment: &model.Enrichment{Keywords: []string{"a"}}}

		convey.Convey("When cloning and mutating the copy", func() {
			c := m.Clone()
			c.Genres[0] = "Comedy"
			c.Enrichment.Keywords[0] = "b"

			convey.Convey("Then the original should be untouched", func() {
				convey.So(m.Genres[0], convey.ShouldEqual, "Drama")
				convey.So(m.Enrichment.Keywords[0], convey.ShouldEqual, "a")
			})
		})
	})
}

func TestPreferenceValidation(t *testing.T) {
	convey.Convey("Given preference sets", t, func() {
		convey.Convey("Then a well-formed set should pass", func() {
			p := model.PreferenceSet{
				Genres:  []string{"Drama"},
				Ratings: model.Thresholds{IMDb: model.Ptr(7.0), RottenTomatoes: model.Ptr(80.0)},
				Runtime: &model.Range{Min: 80, Max: 140},
			}
			convey.So(p.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then an inverted range should be rejected", func() {
			p := model.PreferenceSet{Year: &model.Range{Min: 2020, Max: 1990}}
			convey.So(errors.Is(p.Validate(), model.ErrInvalidRange), convey.ShouldBeTrue)
		})

		convey.Convey("Then an out-of-scale threshold should be rejected", func() {
			p := model.PreferenceSet{Ratings: model.Thresholds{IMDb: model.Ptr(11.0)}}
			convey.So(errors.Is(p.Validate(), model.ErrInvalidThreshold), convey.ShouldBeTrue)
		})

		convey.Convey("Then a blank genre should be rejected", func() {
			p := model.PreferenceSet{Genres: []string{" "}}
			convey.So(errors.Is(p.Validate(), model.ErrInvalidGenre), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given constraints", t, func() {
		convey.Convey("Then None should carry no value", func() {
			c := model.None[model.Range]()
			convey.So(c.IsSome(), convey.ShouldBeFalse)
			convey.So(c.Ptr(), convey.ShouldBeNil)
		})

		convey.Convey("Then an inverted Some should match nothing", func() {
			r, ok := model.Some(model.Range{Min: 150, Max: 90}).Get()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(r.Empty(), convey.ShouldBeTrue)
			convey.So(r.Contains(120), convey.ShouldBeFalse)
		})
	})
}
