package selector_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/trev125/FlickPick/internal/domain/combine"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/internal/domain/selector"
	"github.com/trev125/FlickPick/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockEnricher struct {
	mu       sync.Mutex
	ratings  map[string]float64
	fail     map[string]bool
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (m *mockEnricher) Enrich(ctx context.Context, title string, year int) (model.Enrichment, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[title]++
	if m.fail[title] {
		return model.Enrichment{}, errors.New("upstream down")
	}
	e := model.Enrichment{Version: model.EnrichmentVersion}
	if r, ok := m.ratings[title]; ok {
		e.IMDbRating = model.Ptr(r)
	}
	return e, nil
}

func identity(int, func(i, j int)) {}

func catalog(n int) []model.Movie {
	out := make([]model.Movie, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Movie{
			ID:      fmt.Sprint(i),
			Title:   fmt.Sprintf("Movie %d", i),
			Year:    2000 + i,
			Genres:  []string{"Comedy"},
			Runtime: 100,
		})
	}
	return out
}

func TestFilter(t *testing.T) {
	Convey("Given a catalog with watched and unwatched titles", t, func() {
		movies := []model.Movie{
			{ID: "1", Title: "A", Year: 1995, Genres: []string{"Comedy"}, Runtime: 95},
			{ID: "2", Title: "B", Year: 2010, Genres: []string{"Horror"}, Runtime: 130, Watched: true},
			{ID: "3", Title: "C", Year: 2018, Genres: []string{"comedy", "Horror"}, Runtime: 110},
			{ID: "4", Title: "D", Year: 2021, Genres: []string{"Drama"}, Runtime: 170},
		}

		Convey("When include-watched is false", func() {
			c, _ := combine.Combine(model.PreferenceSet{})
			out := selector.Filter(movies, c)

			Convey("Then no watched movie should survive", func() {
				So(len(out), ShouldEqual, 3)
				for _, m := range out {
					So(m.Watched, ShouldBeFalse)
				}
			})
		})

		Convey("When two users name different genres", func() {
			c, _ := combine.Combine(
				model.PreferenceSet{Genres: []string{"Comedy"}, IncludeWatched: true},
				model.PreferenceSet{Genres: []string{"Horror"}, IncludeWatched: true},
			)
			out := selector.Filter(movies, c)

			Convey("Then only movies overlapping both sets should remain", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].ID, ShouldEqual, "3")
			})
		})

		Convey("When runtime ranges do not intersect", func() {
			c, _ := combine.Combine(
				model.PreferenceSet{Runtime: &model.Range{Min: 150, Max: 200}},
				model.PreferenceSet{Runtime: &model.Range{Min: 60, Max: 100}},
			)

			Convey("Then the result should be empty", func() {
				So(selector.Filter(movies, c), ShouldBeEmpty)
			})
		})

		Convey("When a year range is set", func() {
			c, _ := combine.Combine(model.PreferenceSet{Year: &model.Range{Min: 2000, Max: 2020}})
			out := selector.Filter(movies, c)

			Convey("Then bounds should be inclusive", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].ID, ShouldEqual, "3")
			})
		})
	})
}

func TestPassesRatings(t *testing.T) {
	Convey("Given a threshold on IMDb", t, func() {
		th := model.Thresholds{IMDb: model.Ptr(7.0), Metacritic: model.Ptr(60.0)}

		Convey("Then unknown ratings should pass", func() {
			So(selector.PassesRatings(nil, th), ShouldBeTrue)
			So(selector.PassesRatings(&model.Enrichment{}, th), ShouldBeTrue)
		})

		Convey("Then a known rating below threshold should fail", func() {
			So(selector.PassesRatings(&model.Enrichment{IMDbRating: model.Ptr(6.9)}, th), ShouldBeFalse)
			So(selector.PassesRatings(&model.Enrichment{Metacritic: model.Ptr(59)}, th), ShouldBeFalse)
		})

		Convey("Then a rating equal to threshold should pass", func() {
			So(selector.PassesRatings(&model.Enrichment{IMDbRating: model.Ptr(7.0)}, th), ShouldBeTrue)
		})
	})
}

func TestSelect(t *testing.T) {
	Convey("Given a solo user, a catalog of 50 eligible movies and a budget of 10", t, func() {
		ctx := context.Background()
		movies := catalog(50)
		enricher := &mockEnricher{}
		sel := selector.New(enricher, selector.WithConcurrency(4), selector.WithShuffle(identity))
		c, _ := combine.Combine(model.PreferenceSet{Genres: []string{"Comedy"}})

		Convey("When selecting", func() {
			out, err := sel.Select(ctx, movies, c, 10)

			Convey("Then exactly the budget should be enriched and returned", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 10)
				So(len(enricher.calls), ShouldEqual, 10)
				for _, m := range out {
					So(m.Enrichment, ShouldNotBeNil)
					So(enricher.calls[m.Title], ShouldEqual, 1)
				}
			})

			Convey("And the catalog should not be modified", func() {
				for _, m := range movies {
					So(m.Enrichment, ShouldBeNil)
				}
			})
		})

		Convey("When some titles fail and some fall below threshold", func() {
			enricher.fail = map[string]bool{"Movie 0": true}
			enricher.ratings = map[string]float64{"Movie 1": 4.0, "Movie 2": 8.0}
			c.Ratings.IMDb = model.Ptr(6.0)

			out, err := sel.Select(ctx, movies, c, 5)

			Convey("Then failures should be kept with empty data and low ratings dropped", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 4)
				ids := []string{}
				for _, m := range out {
					ids = append(ids, m.ID)
				}
				So(ids, ShouldContain, "0")
				So(ids, ShouldNotContain, "1")
				So(ids, ShouldContain, "2")
			})
		})

		Convey("When the budget exceeds the eligible count", func() {
			out, err := sel.Select(ctx, movies[:3], c, 20)

			Convey("Then every eligible movie should be returned", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 3)
			})
		})

		Convey("When enrichment is slow", func() {
			enricher.delay = 5 * time.Millisecond
			_, err := sel.Select(ctx, movies, c, 20)

			Convey("Then concurrency should stay within the limit", func() {
				So(err, ShouldBeNil)
				So(enricher.peak.Load(), ShouldBeLessThanOrEqualTo, 4)
				So(enricher.peak.Load(), ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given a shuffle that reverses and records its input sizes", t, func() {
		var sizes []int
		reverse := func(n int, swap func(i, j int)) {
			sizes = append(sizes, n)
			for i := 0; i < n/2; i++ {
				swap(i, n-1-i)
			}
		}
		enricher := &mockEnricher{ratings: map[string]float64{"Movie 8": 4.0}}
		sel := selector.New(enricher, selector.WithShuffle(reverse))
		c, _ := combine.Combine(model.PreferenceSet{
			Genres:  []string{"Comedy"},
			Ratings: model.Thresholds{IMDb: model.Ptr(6.0)},
		})

		Convey("When selecting 4 of 10 eligible movies", func() {
			out, err := sel.Select(context.Background(), catalog(10), c, 4)
			ids := []string{}
			for _, m := range out {
				ids = append(ids, m.ID)
			}

			Convey("Then the shuffle should run before the cut and again on the survivors", func() {
				So(err, ShouldBeNil)
				So(sizes, ShouldResemble, []int{10, 3})
			})

			Convey("And the budget should be taken from the first permutation", func() {
				So(len(enricher.calls), ShouldEqual, 4)
				for _, title := range []string{"Movie 9", "Movie 8", "Movie 7", "Movie 6"} {
					So(enricher.calls[title], ShouldEqual, 1)
				}
			})

			Convey("And the final order should come from the second permutation", func() {
				So(ids, ShouldResemble, []string{"6", "7", "9"})
			})
		})
	})

	Convey("Given a selector without an enricher", t, func() {
		sel := selector.New(nil, selector.WithShuffle(identity))
		c, _ := combine.Combine(model.PreferenceSet{})

		Convey("Then candidates should carry empty enrichment", func() {
			out, err := sel.Select(context.Background(), catalog(3), c, 5)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 3)
			So(out[0].Enrichment, ShouldResemble, &model.Enrichment{})
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sel := selector.New(&mockEnricher{}, selector.WithShuffle(identity))
		c, _ := combine.Combine(model.PreferenceSet{})

		Convey("Then selection should report the cancellation", func() {
			_, err := sel.Select(ctx, catalog(3), c, 5)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
