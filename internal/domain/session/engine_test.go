package session_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/trev125/FlickPick/internal/adapters/repository"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/internal/domain/selector"
	"github.com/trev125/FlickPick/internal/domain/session"
	"github.com/trev125/FlickPick/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeCatalog struct {
	mu     sync.Mutex
	movies []model.Movie
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeCatalog) ListCatalog(ctx context.Context, section string) ([]model.Movie, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.movies, nil
}

func (f *fakeCatalog) ListGenres(ctx context.Context, section string) ([]string, error) {
	return []string{"Comedy", "Horror"}, nil
}

type countingEnricher struct {
	calls atomic.Int32
}

func (c *countingEnricher) Enrich(ctx context.Context, title string, year int) (model.Enrichment, error) {
	c.calls.Add(1)
	if strings.HasSuffix(title, "2") {
		return model.Enrichment{}, errors.New("rate limited")
	}
	return model.Enrichment{Version: model.EnrichmentVersion, IMDbRating: model.Ptr(7.2)}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func movies(n int, genre string) []model.Movie {
	out := make([]model.Movie, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Movie{
			ID:      fmt.Sprintf("%s-%d", genre, i),
			Title:   fmt.Sprintf("%s %d", genre, i),
			Year:    2001 + i,
			Genres:  []string{genre},
			Runtime: 100,
		})
	}
	return out
}

func identity(int, func(i, j int)) {}

type fixture struct {
	ctx      context.Context
	store    *repository.MemoryStore
	catalog  *fakeCatalog
	enricher *countingEnricher
	clock    *clock
	engine   *session.Engine
}

func newFixture(catalog []model.Movie, opts ...session.Option) *fixture {
	f := &fixture{
		ctx:      context.Background(),
		catalog:  &fakeCatalog{movies: catalog},
		enricher: &countingEnricher{},
		clock:    &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.store = repository.NewMemoryStore(f.ctx)
	sel := selector.New(f.enricher, selector.WithShuffle(identity))
	opts = append([]session.Option{session.WithClock(f.clock.Now)}, opts...)
	f.engine = session.NewEngine(f.store, f.catalog, sel, opts...)
	return f
}

func (f *fixture) soloMatched(size int) string {
	s, err := f.engine.CreateSession(f.ctx, size)
	So(err, ShouldBeNil)
	_, err = f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
	So(err, ShouldBeNil)
	_, err = f.engine.SubmitPreferences(f.ctx, s.Code, "u1", model.PreferenceSet{})
	So(err, ShouldBeNil)
	_, err = f.engine.ComputeMatch(f.ctx, s.Code)
	So(err, ShouldBeNil)
	return s.Code
}

func TestCreateSession(t *testing.T) {
	Convey("Given an engine", t, func() {
		f := newFixture(nil, session.WithDefaultSize(12))
		defer f.store.Close()

		Convey("When creating a session", func() {
			s, err := f.engine.CreateSession(f.ctx, 3)

			Convey("Then it should get a 6 character unambiguous code and a clamped size", func() {
				So(err, ShouldBeNil)
				So(len(s.Code), ShouldEqual, 6)
				So(strings.ContainsAny(s.Code, "01ILO"), ShouldBeFalse)
				So(s.Size, ShouldEqual, model.MinSessionSize)
				So(s.State, ShouldEqual, model.StateCreated)
				So(s.Users, ShouldBeEmpty)
			})
		})

		Convey("Then sizes should be clamped or defaulted", func() {
			big, _ := f.engine.CreateSession(f.ctx, 500)
			So(big.Size, ShouldEqual, model.MaxSessionSize)
			def, _ := f.engine.CreateSession(f.ctx, 0)
			So(def.Size, ShouldEqual, 12)
		})
	})

	Convey("Given a code generator that repeats itself", t, func() {
		codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
		i := 0
		next := func() string {
			c := codes[i%len(codes)]
			i++
			return c
		}
		f := newFixture(nil, session.WithCodeGenerator(next))
		defer f.store.Close()

		Convey("Then a collision should be retried with a fresh code", func() {
			a, err := f.engine.CreateSession(f.ctx, 5)
			So(err, ShouldBeNil)
			b, err := f.engine.CreateSession(f.ctx, 5)
			So(err, ShouldBeNil)
			So(a.Code, ShouldEqual, "AAAAAA")
			So(b.Code, ShouldEqual, "BBBBBB")
		})
	})

	Convey("Given a code generator that always collides", t, func() {
		f := newFixture(nil, session.WithCodeGenerator(func() string { return "CCCCCC" }))
		defer f.store.Close()
		_, err := f.engine.CreateSession(f.ctx, 5)
		So(err, ShouldBeNil)

		Convey("Then creation should eventually give up", func() {
			_, err := f.engine.CreateSession(f.ctx, 5)
			So(errors.Is(err, session.ErrCodeExhausted), ShouldBeTrue)
		})
	})
}

func TestJoinSession(t *testing.T) {
	Convey("Given a new session", t, func() {
		f := newFixture(nil, session.WithUserIDGenerator(func() string { return "generated" }))
		defer f.store.Close()
		s, _ := f.engine.CreateSession(f.ctx, 10)

		Convey("When joining an unknown code", func() {
			_, err := f.engine.JoinSession(f.ctx, "ZZZZZZ", "u1", "Ann")

			Convey("Then it should report not found", func() {
				So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)
				So(session.IsNotFound(err), ShouldBeTrue)
			})
		})

		Convey("When the same user joins twice", func() {
			first, err := f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
			So(err, ShouldBeNil)
			second, err := f.engine.JoinSession(f.ctx, strings.ToLower(s.Code), "u1", "Someone else")

			Convey("Then the user count should not change", func() {
				So(err, ShouldBeNil)
				So(first.Rejoin, ShouldBeFalse)
				So(second.Rejoin, ShouldBeTrue)
				So(len(second.Session.Users), ShouldEqual, 1)
				So(second.Session.Users[0].Name, ShouldEqual, "Ann")
				So(second.Session.State, ShouldEqual, model.StateAwaitingUsers)
			})
		})

		Convey("When a third user joins", func() {
			_, _ = f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
			_, _ = f.engine.JoinSession(f.ctx, s.Code, "u2", "Bob")
			_, err := f.engine.JoinSession(f.ctx, s.Code, "u3", "Cat")

			Convey("Then the session should be full", func() {
				So(errors.Is(err, session.ErrSessionFull), ShouldBeTrue)
				So(session.IsConflict(err), ShouldBeTrue)
			})

			Convey("And existing users can still rejoin", func() {
				r, err := f.engine.JoinSession(f.ctx, s.Code, "u2", "Bob")
				So(err, ShouldBeNil)
				So(r.Rejoin, ShouldBeTrue)
			})
		})

		Convey("When joining without a user id", func() {
			r, err := f.engine.JoinSession(f.ctx, s.Code, "", "Ann")

			Convey("Then an id should be generated", func() {
				So(err, ShouldBeNil)
				So(r.UserID, ShouldEqual, "generated")
			})
		})

		Convey("When joining concurrently", func() {
			var wg sync.WaitGroup
			var full atomic.Int32
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if _, err := f.engine.JoinSession(f.ctx, s.Code, fmt.Sprintf("u%d", i), ""); errors.Is(err, session.ErrSessionFull) {
						full.Add(1)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then exactly two users should be admitted", func() {
				sum, err := f.engine.Summary(f.ctx, s.Code)
				So(err, ShouldBeNil)
				So(len(sum.Users), ShouldEqual, 2)
				So(full.Load(), ShouldEqual, 8)
			})
		})
	})
}

func TestSubmitPreferences(t *testing.T) {
	Convey("Given a session with two users", t, func() {
		f := newFixture(movies(3, "Comedy"))
		defer f.store.Close()
		s, _ := f.engine.CreateSession(f.ctx, 5)
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u2", "Bob")

		Convey("When an unknown user submits", func() {
			_, err := f.engine.SubmitPreferences(f.ctx, s.Code, "nobody", model.PreferenceSet{})
			So(errors.Is(err, session.ErrUserNotFound), ShouldBeTrue)
		})

		Convey("When a range is inverted", func() {
			_, err := f.engine.SubmitPreferences(f.ctx, s.Code, "u1", model.PreferenceSet{
				Runtime: &model.Range{Min: 150, Max: 90},
			})
			So(session.IsInvalid(err), ShouldBeTrue)
			So(errors.Is(err, model.ErrInvalidRange), ShouldBeTrue)
		})

		Convey("When only one user submitted", func() {
			sum, err := f.engine.SubmitPreferences(f.ctx, s.Code, "u1", model.PreferenceSet{})
			So(err, ShouldBeNil)

			Convey("Then the session should await preferences and refuse to match", func() {
				So(sum.State, ShouldEqual, model.StateAwaitingPreferences)
				So(sum.AllSubmitted, ShouldBeFalse)
				_, err := f.engine.ComputeMatch(f.ctx, s.Code)
				So(errors.Is(err, session.ErrNotAllSubmitted), ShouldBeTrue)
				So(f.catalog.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the caller mutates preferences after submitting", func() {
			prefs := model.PreferenceSet{Genres: []string{"Comedy"}}
			_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u1", prefs)
			_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u2", model.PreferenceSet{})
			prefs.Genres[0] = "Horror"

			Convey("Then the stored copy should be unaffected", func() {
				r, err := f.engine.ComputeMatch(f.ctx, s.Code)
				So(err, ShouldBeNil)
				So(r.TotalMatches, ShouldEqual, 3)
			})
		})
	})
}

func TestComputeMatch(t *testing.T) {
	Convey("Given a solo session with a budget of 5 and 3 matching movies", t, func() {
		catalog := append(movies(3, "Comedy"), model.Movie{ID: "seen", Title: "Seen", Genres: []string{"Comedy"}, Watched: true})
		f := newFixture(catalog)
		defer f.store.Close()
		s, _ := f.engine.CreateSession(f.ctx, 5)
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
		_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u1", model.PreferenceSet{Genres: []string{"comedy"}})

		Convey("Then before the match runs the session should not report matched", func() {
			sum, err := f.engine.Summary(f.ctx, s.Code)
			So(err, ShouldBeNil)
			So(sum.AllSubmitted, ShouldBeTrue)
			So(sum.Matched, ShouldBeFalse)
			So(sum.State, ShouldEqual, model.StateAwaitingPreferences)
		})

		Convey("When computing the match", func() {
			r, err := f.engine.ComputeMatch(f.ctx, s.Code)

			Convey("Then every eligible movie should be a candidate with an enrichment attempt", func() {
				So(err, ShouldBeNil)
				So(r.TotalMatches, ShouldEqual, 3)
				So(r.Index, ShouldEqual, 0)
				So(r.IsFirst, ShouldBeTrue)
				So(r.Movie, ShouldNotBeNil)
				So(r.Movie.Enrichment, ShouldNotBeNil)
				So(f.enricher.calls.Load(), ShouldEqual, 3)
				So(r.Criteria, ShouldNotBeNil)
				So(r.Criteria.CommonGenres, ShouldResemble, []string{"comedy"})
			})

			Convey("Then a second call should return the memoized list", func() {
				again, err := f.engine.ComputeMatch(f.ctx, s.Code)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, r)
				So(f.catalog.calls.Load(), ShouldEqual, 1)
				So(f.enricher.calls.Load(), ShouldEqual, 3)
			})

			Convey("Then the session should be matched", func() {
				sum, _ := f.engine.Summary(f.ctx, s.Code)
				So(sum.State, ShouldEqual, model.StateMatched)
				So(sum.Matched, ShouldBeTrue)
				So(sum.TotalMatches, ShouldEqual, 3)
			})
		})

		Convey("When many callers compute concurrently", func() {
			f.catalog.delay = 20 * time.Millisecond
			var wg sync.WaitGroup
			results := make([]session.MatchResult, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], _ = f.engine.ComputeMatch(f.ctx, s.Code)
				}(i)
			}
			wg.Wait()

			Convey("Then the catalog should be read once and everyone sees the same list", func() {
				So(f.catalog.calls.Load(), ShouldEqual, 1)
				for _, r := range results {
					So(r.TotalMatches, ShouldEqual, 3)
					So(r.Movie.ID, ShouldEqual, results[0].Movie.ID)
				}
			})
		})

		Convey("When the caller's context is already cancelled", func() {
			ctx, cancel := context.WithCancel(f.ctx)
			cancel()
			r, err := f.engine.ComputeMatch(ctx, s.Code)

			Convey("Then the match should still complete", func() {
				So(err, ShouldBeNil)
				So(r.TotalMatches, ShouldEqual, 3)
			})
		})

		Convey("When the catalog is unavailable", func() {
			f.catalog.err = errors.New("plex down")
			_, err := f.engine.ComputeMatch(f.ctx, s.Code)

			Convey("Then the failure should not be memoized", func() {
				So(errors.Is(err, session.ErrCatalogUnavailable), ShouldBeTrue)
				f.catalog.mu.Lock()
				f.catalog.err = nil
				f.catalog.mu.Unlock()
				r, err := f.engine.ComputeMatch(f.ctx, s.Code)
				So(err, ShouldBeNil)
				So(r.TotalMatches, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a duo session with disjoint genres", t, func() {
		catalog := append(movies(4, "Comedy"), movies(4, "Horror")...)
		f := newFixture(catalog)
		defer f.store.Close()
		s, _ := f.engine.CreateSession(f.ctx, 10)
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u2", "Bob")
		_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u1", model.PreferenceSet{Genres: []string{"Comedy"}})
		_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u2", model.PreferenceSet{Genres: []string{"Horror"}})

		Convey("When computing the match", func() {
			r, err := f.engine.ComputeMatch(f.ctx, s.Code)

			Convey("Then there should be no current movie and zero matches", func() {
				So(err, ShouldBeNil)
				So(r.Movie, ShouldBeNil)
				So(r.TotalMatches, ShouldEqual, 0)
				So(r.IsFirst, ShouldBeTrue)
				So(r.IsLast, ShouldBeTrue)
				So(r.Criteria.CommonGenres, ShouldResemble, []string{"Comedy", "Horror"})
			})
		})
	})

	Convey("Given a duo session with non-overlapping runtimes", t, func() {
		f := newFixture(movies(6, "Drama"))
		defer f.store.Close()
		s, _ := f.engine.CreateSession(f.ctx, 10)
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u2", "Bob")
		_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u1", model.PreferenceSet{Runtime: &model.Range{Min: 60, Max: 90}})
		_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u2", model.PreferenceSet{Runtime: &model.Range{Min: 120, Max: 150}})

		Convey("Then the candidate list should be empty", func() {
			r, err := f.engine.ComputeMatch(f.ctx, s.Code)
			So(err, ShouldBeNil)
			So(r.TotalMatches, ShouldEqual, 0)
			So(f.enricher.calls.Load(), ShouldEqual, 0)
		})
	})
}

type stallingEnricher struct {
	stall string
}

func (s *stallingEnricher) Enrich(ctx context.Context, title string, year int) (model.Enrichment, error) {
	if title == s.stall {
		<-ctx.Done()
		return model.Enrichment{}, ctx.Err()
	}
	return model.Enrichment{Version: model.EnrichmentVersion, IMDbRating: model.Ptr(7.2)}, nil
}

func TestComputeMatchDeadline(t *testing.T) {
	Convey("Given a solo session where one enrichment outlives the match timeout", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		sel := selector.New(&stallingEnricher{stall: "Comedy 1"}, selector.WithShuffle(identity))
		engine := session.NewEngine(store, &fakeCatalog{movies: movies(5, "Comedy")}, sel,
			session.WithMatchTimeout(100*time.Millisecond))

		s, _ := engine.CreateSession(ctx, 5)
		_, _ = engine.JoinSession(ctx, s.Code, "u1", "Ann")
		_, _ = engine.SubmitPreferences(ctx, s.Code, "u1", model.PreferenceSet{})

		Convey("When computing the match", func() {
			r, err := engine.ComputeMatch(ctx, s.Code)

			Convey("Then every candidate should be committed", func() {
				So(err, ShouldBeNil)
				So(r.TotalMatches, ShouldEqual, 5)
			})

			Convey("And only the late candidate should have empty ratings", func() {
				seen := map[string]*model.Enrichment{r.Movie.Title: r.Movie.Enrichment}
				for i := 1; i < 5; i++ {
					next, err := engine.Reroll(ctx, s.Code)
					So(err, ShouldBeNil)
					seen[next.Movie.Title] = next.Movie.Enrichment
				}
				So(len(seen), ShouldEqual, 5)
				So(seen["Comedy 1"], ShouldNotBeNil)
				So(seen["Comedy 1"].IMDbRating, ShouldBeNil)
				So(*seen["Comedy 0"].IMDbRating, ShouldEqual, 7.2)
				So(*seen["Comedy 4"].IMDbRating, ShouldEqual, 7.2)
			})

			Convey("And the match should be memoized", func() {
				again, err := engine.ComputeMatch(ctx, s.Code)
				So(err, ShouldBeNil)
				So(again.TotalMatches, ShouldEqual, 5)
			})
		})
	})
}

func TestNavigation(t *testing.T) {
	Convey("Given a matched session with 5 candidates", t, func() {
		f := newFixture(movies(8, "Comedy"))
		defer f.store.Close()

		Convey("When navigating before a match", func() {
			s, _ := f.engine.CreateSession(f.ctx, 5)
			_, err := f.engine.Reroll(f.ctx, s.Code)
			So(errors.Is(err, session.ErrNotMatched), ShouldBeTrue)
		})

		code := f.soloMatched(5)

		Convey("When going back from the first candidate", func() {
			r, err := f.engine.Previous(f.ctx, code)

			Convey("Then the cursor should stay at 0", func() {
				So(err, ShouldBeNil)
				So(r.Index, ShouldEqual, 0)
				So(r.IsFirst, ShouldBeTrue)
				So(r.IsLast, ShouldBeFalse)
			})
		})

		Convey("When rerolling past the end", func() {
			var r session.MatchResult
			var err error
			for i := 0; i < 4; i++ {
				r, err = f.engine.Reroll(f.ctx, code)
				So(err, ShouldBeNil)
			}
			So(r.Index, ShouldEqual, 4)
			So(r.IsLast, ShouldBeTrue)
			last := r.Movie.ID

			r, err = f.engine.Reroll(f.ctx, code)

			Convey("Then the cursor should saturate at the last index", func() {
				So(err, ShouldBeNil)
				So(r.Index, ShouldEqual, 4)
				So(r.IsLast, ShouldBeTrue)
				So(r.Movie.ID, ShouldEqual, last)
			})

			Convey("Then previous should move back and update the current movie", func() {
				p, err := f.engine.Previous(f.ctx, code)
				So(err, ShouldBeNil)
				So(p.Index, ShouldEqual, 3)
				So(p.Movie.ID, ShouldNotEqual, last)
			})
		})
	})
}

func TestVoting(t *testing.T) {
	Convey("Given a matched solo session", t, func() {
		f := newFixture(movies(5, "Comedy"))
		defer f.store.Close()
		code := f.soloMatched(5)
		r, _ := f.engine.ComputeMatch(f.ctx, code)
		So(r.TotalMatches, ShouldEqual, 5)

		Convey("When voting on a movie outside the list", func() {
			_, err := f.engine.Vote(f.ctx, code, "u1", "nope", true)
			So(errors.Is(err, session.ErrMovieNotFound), ShouldBeTrue)
		})

		Convey("When an unknown user votes", func() {
			_, err := f.engine.Vote(f.ctx, code, "ghost", "Comedy-0", true)
			So(errors.Is(err, session.ErrUserNotFound), ShouldBeTrue)
		})

		Convey("When results are requested before voting is done", func() {
			_, err := f.engine.VotingResults(f.ctx, code)
			So(errors.Is(err, session.ErrVotingIncomplete), ShouldBeTrue)
		})

		Convey("When the user votes on some movies", func() {
			p, err := f.engine.Vote(f.ctx, code, "u1", "Comedy-0", true)
			So(err, ShouldBeNil)
			p, err = f.engine.Vote(f.ctx, code, "u1", "Comedy-0", false)
			So(err, ShouldBeNil)

			Convey("Then overwrites should not count twice", func() {
				So(p.VotesCast, ShouldEqual, 1)
				So(p.Total, ShouldEqual, 5)
				So(p.Complete, ShouldBeFalse)
				So(p.Next.ID, ShouldEqual, "Comedy-1")
				So(p.NextIndex, ShouldEqual, 1)
			})

			Convey("Then the session should be voting", func() {
				sum, _ := f.engine.Summary(f.ctx, code)
				So(sum.State, ShouldEqual, model.StateVoting)
			})
		})

		Convey("When the user votes on every movie", func() {
			yes := map[string]bool{"Comedy-0": true, "Comedy-2": true, "Comedy-4": true}
			var p session.VotingPosition
			for i := 0; i < 5; i++ {
				id := fmt.Sprintf("Comedy-%d", i)
				var err error
				p, err = f.engine.Vote(f.ctx, code, "u1", id, yes[id])
				So(err, ShouldBeNil)
			}

			Convey("Then voting should be complete", func() {
				So(p.Complete, ShouldBeTrue)
				So(p.AllVotingComplete, ShouldBeTrue)
				So(p.Next, ShouldBeNil)
				sum, _ := f.engine.Summary(f.ctx, code)
				So(sum.State, ShouldEqual, model.StateAllVotingComplete)
			})

			Convey("Then bothYes should equal the yes votes", func() {
				res, err := f.engine.VotingResults(f.ctx, code)
				So(err, ShouldBeNil)
				So(len(res.BothYes), ShouldEqual, 3)
				So(len(res.User1No), ShouldEqual, 2)
				So(res.User2No, ShouldBeEmpty)
				So(res.BothNo, ShouldBeEmpty)
			})

			Convey("Then voting again should stay complete", func() {
				p, err := f.engine.Vote(f.ctx, code, "u1", "Comedy-1", true)
				So(err, ShouldBeNil)
				So(p.Complete, ShouldBeTrue)
			})
		})
	})

	Convey("Given a matched duo session", t, func() {
		f := newFixture(movies(5, "Comedy"))
		defer f.store.Close()
		s, _ := f.engine.CreateSession(f.ctx, 5)
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u1", "Ann")
		_, _ = f.engine.JoinSession(f.ctx, s.Code, "u2", "Bob")
		_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u1", model.PreferenceSet{})
		_, _ = f.engine.SubmitPreferences(f.ctx, s.Code, "u2", model.PreferenceSet{})
		_, err := f.engine.ComputeMatch(f.ctx, s.Code)
		So(err, ShouldBeNil)

		Convey("When both users finish voting", func() {
			u1 := []bool{true, false, true, false, true}
			u2 := []bool{true, true, false, false, true}
			for i := 0; i < 5; i++ {
				id := fmt.Sprintf("Comedy-%d", i)
				_, err := f.engine.Vote(f.ctx, s.Code, "u1", id, u1[i])
				So(err, ShouldBeNil)
				_, err = f.engine.Vote(f.ctx, s.Code, "u2", id, u2[i])
				So(err, ShouldBeNil)
			}

			Convey("Then each movie should land in exactly one bucket", func() {
				res, err := f.engine.VotingResults(f.ctx, s.Code)
				So(err, ShouldBeNil)
				So(len(res.BothYes), ShouldEqual, 2)
				So(len(res.User1No), ShouldEqual, 1)
				So(len(res.User2No), ShouldEqual, 1)
				So(len(res.BothNo), ShouldEqual, 1)
				So(res.User1No[0].ID, ShouldEqual, "Comedy-1")
				So(res.User2No[0].ID, ShouldEqual, "Comedy-2")
			})
		})

		Convey("When only one user finishes", func() {
			for i := 0; i < 5; i++ {
				_, _ = f.engine.Vote(f.ctx, s.Code, "u1", fmt.Sprintf("Comedy-%d", i), true)
			}

			Convey("Then results should not be available yet", func() {
				_, err := f.engine.VotingResults(f.ctx, s.Code)
				So(errors.Is(err, session.ErrVotingIncomplete), ShouldBeTrue)
				p, err := f.engine.VotingPosition(f.ctx, s.Code, "u2")
				So(err, ShouldBeNil)
				So(p.VotesCast, ShouldEqual, 0)
				So(p.Next.ID, ShouldEqual, "Comedy-0")
			})
		})
	})
}

func TestSweepExpired(t *testing.T) {
	Convey("Given sessions of different ages", t, func() {
		f := newFixture(nil, session.WithMaxAge(24*time.Hour))
		defer f.store.Close()
		old, _ := f.engine.CreateSession(f.ctx, 5)
		f.clock.Advance(20 * time.Hour)
		fresh, _ := f.engine.CreateSession(f.ctx, 5)
		f.clock.Advance(5 * time.Hour)

		Convey("When sweeping", func() {
			n := f.engine.SweepExpired(f.ctx)

			Convey("Then only the expired session should be removed", func() {
				So(n, ShouldEqual, 1)
				_, err := f.engine.Summary(f.ctx, old.Code)
				So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)
				_, err = f.engine.Summary(f.ctx, fresh.Code)
				So(err, ShouldBeNil)
				So(f.engine.ActiveSessions(f.ctx), ShouldEqual, 1)
			})

			Convey("Then sweeping again should remove nothing", func() {
				So(f.engine.SweepExpired(f.ctx), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a sweeper with a short interval", t, func() {
		f := newFixture(nil, session.WithMaxAge(time.Hour))
		defer f.store.Close()
		_, _ = f.engine.CreateSession(f.ctx, 5)
		f.clock.Advance(2 * time.Hour)

		Convey("When it runs until cancelled", func() {
			ctx, cancel := context.WithCancel(f.ctx)
			done := make(chan error, 1)
			go func() { done <- session.NewSweeper(f.engine, 5*time.Millisecond).Serve(ctx) }()

			deadline := time.Now().Add(time.Second)
			for f.engine.ActiveSessions(f.ctx) > 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			cancel()

			Convey("Then the expired session should be gone and Serve should return", func() {
				So(f.engine.ActiveSessions(f.ctx), ShouldEqual, 0)
				So(errors.Is(<-done, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestListGenres(t *testing.T) {
	Convey("Given an engine", t, func() {
		f := newFixture(nil)
		defer f.store.Close()

		Convey("Then genres should come from the catalog", func() {
			g, err := f.engine.ListGenres(f.ctx, "")
			So(err, ShouldBeNil)
			So(g, ShouldResemble, []string{"Comedy", "Horror"})
		})
	})
}
