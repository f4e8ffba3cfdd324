// Package session implements the matching room lifecycle: join, submit,
// match, browse, vote and tally.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/trev125/FlickPick/internal/adapters/repository"
	"github.com/trev125/FlickPick/internal/domain/combine"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/internal/domain/tally"
	"github.com/trev125/FlickPick/pkg/logger"
	"github.com/trev125/FlickPick/pkg/metrics"
)

const (
	codeAlphabet    = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength      = 6
	maxCodeAttempts = 16
)

// Catalog lists the movies and genres of a library.
type Catalog interface {
	ListCatalog(ctx context.Context, section string) ([]model.Movie, error)
	ListGenres(ctx context.Context, section string) ([]string, error)
}

// Selector narrows a catalog to an enriched candidate list.
type Selector interface {
	Select(ctx context.Context, catalog []model.Movie, c model.Combined, budget int) ([]model.Movie, error)
}

// Engine runs session transitions. Each transition holds the session's own
// lock; the lock is released while the catalog and enrichment run.
type Engine struct {
	store    repository.Store
	catalog  Catalog
	selector Selector

	section      string
	defaultSize  int
	maxAge       time.Duration
	matchTimeout time.Duration
	now          func() time.Time
	newCode      func() string
	newUserID    func() string
	logger       logger.Logger

	matches singleflight.Group
}

// NewEngine creates an Engine.
func NewEngine(store repository.Store, catalog Catalog, selector Selector, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		catalog:      catalog,
		selector:     selector,
		defaultSize:  model.DefaultSessionSize,
		maxAge:       24 * time.Hour,
		matchTimeout: 90 * time.Second,
		now:          time.Now,
		newCode:      randomCode,
		newUserID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Named("session")
	}
	return e
}

func randomCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for range codeLength {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeCode canonicalises a client supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateSession allocates a new session with a unique code. A size of zero
// or less selects the configured default; anything else is clamped.
func (e *Engine) CreateSession(ctx context.Context, size int) (Summary, error) {
	if size <= 0 {
		size = e.defaultSize
	}
	for range maxCodeAttempts {
		s := model.NewSession(e.newCode(), size, e.now())
		err := e.store.Insert(ctx, s)
		if errors.Is(err, repository.ErrExists) {
			continue
		}
		if err != nil {
			return Summary{}, err
		}
		metrics.RecordSessionCreated()
		e.logger.Info(ctx, "session created",
			logger.String("code", s.Code),
			logger.Int("size", s.Size),
		)
		return summarize(s), nil
	}
	metrics.RecordErrorByComponent("session", "code_exhausted")
	return Summary{}, ErrCodeExhausted
}

// JoinSession registers userID in the session. Rejoining with a known id
// changes nothing. An empty userID gets a generated one.
func (e *Engine) JoinSession(ctx context.Context, code, userID, name string) (JoinResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = e.newUserID()
	}
	name = strings.TrimSpace(name)

	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		metrics.RecordSessionJoin("not_found")
		return JoinResult{}, err
	}
	defer unlock()

	if _, ok := s.Users[userID]; ok {
		metrics.RecordSessionJoin("rejoin")
		return JoinResult{UserID: userID, Rejoin: true, Session: summarize(s)}, nil
	}
	if len(s.Users) >= model.MaxParticipants {
		metrics.RecordSessionJoin("full")
		return JoinResult{}, ErrSessionFull
	}

	s.Users[userID] = &model.UserState{
		ID:       userID,
		Name:     name,
		JoinedAt: e.now(),
		Votes:    make(map[string]bool),
	}
	s.Order = append(s.Order, userID)
	metrics.RecordSessionJoin("joined")
	e.logger.Info(ctx, "user joined",
		logger.String("code", s.Code),
		logger.String("user", userID),
		logger.Int("users", len(s.Users)),
	)
	return JoinResult{UserID: userID, Session: summarize(s)}, nil
}

// SubmitPreferences replaces the user's preference set.
func (e *Engine) SubmitPreferences(ctx context.Context, code, userID string, prefs model.PreferenceSet) (Summary, error) {
	if err := prefs.Validate(); err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrInvalidPreferences, err)
	}

	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	u, ok := s.Users[userID]
	if !ok {
		return Summary{}, ErrUserNotFound
	}
	p := clonePreferences(prefs)
	u.Preferences = &p
	metrics.RecordPreferencesSubmitted()
	return summarize(s), nil
}

// Summary returns the session's derived state and per-user progress.
func (e *Engine) Summary(ctx context.Context, code string) (Summary, error) {
	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		return Summary{}, err
	}
	defer unlock()
	return summarize(s), nil
}

// ComputeMatch builds the candidate list once and returns the current view.
// Later calls return the memoized list. Concurrent callers share one
// computation, which is detached from the caller's cancellation.
func (e *Engine) ComputeMatch(ctx context.Context, code string) (MatchResult, error) {
	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		return MatchResult{}, err
	}
	if s.Matched {
		defer unlock()
		return matchView(s), nil
	}
	if !s.AllSubmitted() {
		unlock()
		return MatchResult{}, ErrNotAllSubmitted
	}
	unlock()

	if _, err, _ := e.matches.Do(s.Code, func() (any, error) {
		return nil, e.match(ctx, s)
	}); err != nil {
		return MatchResult{}, err
	}

	s, unlock, err = e.acquire(ctx, code)
	if err != nil {
		return MatchResult{}, err
	}
	defer unlock()
	return matchView(s), nil
}

func (e *Engine) match(ctx context.Context, s *model.Session) error {
	s.Lock()
	if s.Matched {
		s.Unlock()
		return nil
	}
	prefs := make([]model.PreferenceSet, 0, len(s.Order))
	for _, u := range s.OrderedUsers() {
		if u.Preferences != nil {
			prefs = append(prefs, clonePreferences(*u.Preferences))
		}
	}
	budget := s.Size
	code := s.Code
	s.Unlock()

	mode := "solo"
	if len(prefs) > 1 {
		mode = "duo"
	}
	start := time.Now()
	ms := func() float64 { return float64(time.Since(start).Milliseconds()) }

	c, criteria := combine.Combine(prefs...)

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.matchTimeout)
	defer cancel()

	catalog, err := e.catalog.ListCatalog(mctx, e.section)
	if err != nil {
		metrics.RecordMatchComputed(mode, "catalog_error", ms())
		e.logger.Error(ctx, "catalog unavailable", logger.String("code", code), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	candidates, err := e.selector.Select(mctx, catalog, c, budget)
	if err != nil {
		metrics.RecordMatchComputed(mode, "error", ms())
		e.logger.Error(ctx, "candidate selection failed", logger.String("code", code), logger.Error(err))
		return err
	}

	s.Lock()
	defer s.Unlock()
	if !s.Matched {
		s.Candidates = candidates
		s.Cursor = 0
		s.Criteria = &criteria
		s.Matched = true
	}
	metrics.RecordMatchComputed(mode, "ok", ms())
	e.logger.Info(ctx, "match computed",
		logger.String("code", code),
		logger.String("mode", mode),
		logger.Int("catalog", len(catalog)),
		logger.Int("candidates", len(s.Candidates)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// Reroll advances the cursor by one, saturating at the last candidate.
func (e *Engine) Reroll(ctx context.Context, code string) (MatchResult, error) {
	return e.navigate(ctx, code, 1, "reroll")
}

// Previous moves the cursor back by one, saturating at the first candidate.
func (e *Engine) Previous(ctx context.Context, code string) (MatchResult, error) {
	return e.navigate(ctx, code, -1, "previous")
}

func (e *Engine) navigate(ctx context.Context, code string, delta int, direction string) (MatchResult, error) {
	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		return MatchResult{}, err
	}
	defer unlock()

	if !s.Matched {
		return MatchResult{}, ErrNotMatched
	}
	next := s.Cursor + delta
	if next >= 0 && next < len(s.Candidates) {
		s.Cursor = next
	}
	metrics.RecordNavigation(direction)
	return matchView(s), nil
}

// Vote records or overwrites userID's vote on movieID.
func (e *Engine) Vote(ctx context.Context, code, userID, movieID string, value bool) (VotingPosition, error) {
	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		return VotingPosition{}, err
	}
	defer unlock()

	u, ok := s.Users[userID]
	if !ok {
		return VotingPosition{}, ErrUserNotFound
	}
	if !s.Matched {
		return VotingPosition{}, ErrNotMatched
	}
	if !s.HasCandidate(movieID) {
		return VotingPosition{}, ErrMovieNotFound
	}

	u.Votes[movieID] = value
	u.VotingComplete = u.VotingComplete || s.UserVotingComplete(u)
	metrics.RecordVote(value)
	return position(s, u), nil
}

// VotingPosition reports userID's progress through the candidate list.
func (e *Engine) VotingPosition(ctx context.Context, code, userID string) (VotingPosition, error) {
	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		return VotingPosition{}, err
	}
	defer unlock()

	u, ok := s.Users[userID]
	if !ok {
		return VotingPosition{}, ErrUserNotFound
	}
	if !s.Matched {
		return VotingPosition{}, ErrNotMatched
	}
	return position(s, u), nil
}

// VotingResults tallies the votes once every participant has finished.
func (e *Engine) VotingResults(ctx context.Context, code string) (tally.Result, error) {
	s, unlock, err := e.acquire(ctx, code)
	if err != nil {
		return tally.Result{}, err
	}
	defer unlock()

	if !s.Matched {
		return tally.Result{}, ErrNotMatched
	}
	if !s.AllVotingComplete() {
		return tally.Result{}, ErrVotingIncomplete
	}
	return tally.Tally(s.Candidates, s.OrderedUsers()), nil
}

// ListGenres returns the genre vocabulary of section, or of the configured
// section when empty.
func (e *Engine) ListGenres(ctx context.Context, section string) ([]string, error) {
	if section == "" {
		section = e.section
	}
	genres, err := e.catalog.ListGenres(ctx, section)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return genres, nil
}

// SweepExpired deletes every session older than the max age and returns how
// many were removed. Each deletion holds the session lock.
func (e *Engine) SweepExpired(ctx context.Context) int {
	now := e.now()
	removed := 0
	e.store.Range(ctx, func(s *model.Session) bool {
		s.Lock()
		defer s.Unlock()
		if s.Removed || !s.Expired(now, e.maxAge) {
			return true
		}
		s.Removed = true
		if err := e.store.Delete(ctx, s.Code); err != nil {
			e.logger.Warn(ctx, "failed to delete expired session", logger.String("code", s.Code), logger.Error(err))
			s.Removed = false
			return true
		}
		removed++
		return true
	})

	active := e.store.Count(ctx)
	metrics.RecordSessionsExpired(removed)
	metrics.UpdateActiveSessions(active)
	if removed > 0 {
		e.logger.Info(ctx, "expired sessions swept",
			logger.Int("removed", removed),
			logger.Int("active", active),
		)
	}
	return removed
}

// ActiveSessions returns the number of live sessions.
func (e *Engine) ActiveSessions(ctx context.Context) int {
	return e.store.Count(ctx)
}

// acquire looks up code and locks the session. A session removed by the
// sweep between lookup and lock reports not found.
func (e *Engine) acquire(ctx context.Context, code string) (*model.Session, func(), error) {
	s, err := e.store.Get(ctx, NormalizeCode(code))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	s.Lock()
	if s.Removed {
		s.Unlock()
		return nil, nil, ErrSessionNotFound
	}
	return s, s.Unlock, nil
}

func clonePreferences(p model.PreferenceSet) model.PreferenceSet {
	out := p
	out.Genres = slices.Clone(p.Genres)
	for _, src := range model.RatingSources {
		if v := p.Ratings.Get(src); v != nil {
			out.Ratings.Set(src, model.Ptr(*v))
		}
	}
	if p.Runtime != nil {
		r := *p.Runtime
		out.Runtime = &r
	}
	if p.Year != nil {
		y := *p.Year
		out.Year = &y
	}
	return out
}
