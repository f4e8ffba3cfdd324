package model

import (
	"sync"
	"time"
)

// Session size bounds.
const (
	MinSessionSize     = 5
	MaxSessionSize     = 100
	DefaultSessionSize = 20
	MaxParticipants    = 2
)

// State is the derived lifecycle position of a session.
type State string

const (
	StateCreated             State = "created"
	StateAwaitingUsers       State = "awaiting_users"
	StateAwaitingPreferences State = "awaiting_preferences"
	StateMatched             State = "matched"
	StateVoting              State = "voting"
	StateAllVotingComplete   State = "all_voting_complete"
)

// UserState is one participant's progress in a session.
type UserState struct {
	ID             string
	Name           string
	JoinedAt       time.Time
	Preferences    *PreferenceSet
	Votes          map[string]bool
	VotingComplete bool
}

// Session is one matching room. Callers serialise access with Lock/Unlock;
// the per-session mutex is never held across catalog or enrichment calls.
type Session struct {
	mu sync.Mutex

	Code      string
	CreatedAt time.Time
	Size      int

	Users map[string]*UserState
	// Order records join order; Order[0] is user1.
	Order []string

	Matched    bool
	Candidates []Movie
	Cursor     int
	Criteria   *MatchedCriteria

	// Removed is set by the sweep before the session leaves the store.
	Removed bool
}

// NewSession builds an empty session with a clamped size.
func NewSession(code string, size int, now time.Time) *Session {
	return &Session{
		Code:      code,
		CreatedAt: now,
		Size:      ClampSize(size),
		Users:     make(map[string]*UserState, MaxParticipants),
	}
}

// ClampSize maps a requested size into [MinSessionSize, MaxSessionSize];
// zero or negative selects the default.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSessionSize
	case size < MinSessionSize:
		return MinSessionSize
	case size > MaxSessionSize:
		return MaxSessionSize
	}
	return size
}

// Lock acquires the session mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// OrderedUsers returns users in join order.
func (s *Session) OrderedUsers() []*UserState {
	out := make([]*UserState, 0, len(s.Order))
	for _, id := range s.Order {
		if u, ok := s.Users[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

// SubmittedCount counts users with preferences.
func (s *Session) SubmittedCount() int {
	n := 0
	for _, u := range s.Users {
		if u.Preferences != nil {
			n++
		}
	}
	return n
}

// AllSubmitted reports whether 1-2 users joined and all submitted.
func (s *Session) AllSubmitted() bool {
	return len(s.Users) > 0 && len(s.Users) <= MaxParticipants && s.SubmittedCount() == len(s.Users)
}

// UserVotingComplete reports whether u voted on every candidate.
func (s *Session) UserVotingComplete(u *UserState) bool {
	return s.Matched && len(u.Votes) >= len(s.Candidates)
}

// AllVotingComplete reports whether at least one user exists and every user finished.
func (s *Session) AllVotingComplete() bool {
	if len(s.Users) == 0 {
		return false
	}
	for _, u := range s.Users {
		if !s.UserVotingComplete(u) {
			return false
		}
	}
	return true
}

// HasVotes reports whether anyone voted.
func (s *Session) HasVotes() bool {
	for _, u := range s.Users {
		if len(u.Votes) > 0 {
			return true
		}
	}
	return false
}

// State derives the lifecycle position from membership, submissions, the
// match flag and votes. A session whose users have all submitted stays in
// awaiting_preferences until the candidate list exists.
func (s *Session) State() State {
	submitted := s.SubmittedCount()
	switch {
	case len(s.Users) == 0:
		return StateCreated
	case submitted == 0:
		return StateAwaitingUsers
	case submitted < len(s.Users) || !s.Matched:
		return StateAwaitingPreferences
	case !s.HasVotes():
		return StateMatched
	case !s.AllVotingComplete():
		return StateVoting
	}
	return StateAllVotingComplete
}

// Current returns the movie under the cursor, or nil for an empty list.
func (s *Session) Current() *Movie {
	if s.Cursor < 0 || s.Cursor >= len(s.Candidates) {
		return nil
	}
	m := s.Candidates[s.Cursor].Clone()
	return &m
}

// HasCandidate reports whether movieID is in the candidate list.
func (s *Session) HasCandidate(movieID string) bool {
	for i := range s.Candidates {
		if s.Candidates[i].ID == movieID {
			return true
		}
	}
	return false
}

// Expired reports whether the session outlived maxAge at now.
func (s *Session) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.CreatedAt) > maxAge
}
