package session

import (
	"time"

	"github.com/trev125/FlickPick/internal/domain/model"
)

// UserSummary is one participant's progress.
type UserSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	JoinedAt       time.Time `json:"joinedAt"`
	Submitted      bool      `json:"submitted"`
	VotesCast      int       `json:"votesCast"`
	VotingComplete bool      `json:"votingComplete"`
}

// Summary is a read-only view of a session.
type Summary struct {
	Code              string        `json:"code"`
	State             model.State   `json:"state"`
	Size              int           `json:"size"`
	CreatedAt         time.Time     `json:"createdAt"`
	Users             []UserSummary `json:"users"`
	AllSubmitted      bool          `json:"allSubmitted"`
	Matched           bool          `json:"matched"`
	TotalMatches      int           `json:"totalMatches"`
	AllVotingComplete bool          `json:"allVotingComplete"`
}

// JoinResult is returned by JoinSession.
type JoinResult struct {
	UserID  string  `json:"userId"`
	Rejoin  bool    `json:"rejoin"`
	Session Summary `json:"session"`
}

// MatchResult is the browsing view of the candidate list. Movie is nil when
// the list is empty.
type MatchResult struct {
	Movie        *model.Movie           `json:"movie"`
	Index        int                    `json:"index"`
	TotalMatches int                    `json:"totalMatches"`
	IsFirst      bool                   `json:"isFirst"`
	IsLast       bool                   `json:"isLast"`
	Criteria     *model.MatchedCriteria `json:"matchedCriteria,omitempty"`
}

// VotingPosition is one user's progress through the candidate list.
type VotingPosition struct {
	UserID            string       `json:"userId"`
	VotesCast         int          `json:"votesCast"`
	Total             int          `json:"total"`
	Next              *model.Movie `json:"next"`
	NextIndex         int          `json:"nextIndex"`
	Complete          bool         `json:"complete"`
	AllVotingComplete bool         `json:"allVotingComplete"`
}

func summarize(s *model.Session) Summary {
	out := Summary{
		Code:              s.Code,
		State:             s.State(),
		Size:              s.Size,
		CreatedAt:         s.CreatedAt,
		Users:             make([]UserSummary, 0, len(s.Order)),
		AllSubmitted:      s.AllSubmitted(),
		Matched:           s.Matched,
		TotalMatches:      len(s.Candidates),
		AllVotingComplete: s.AllVotingComplete(),
	}
	for _, u := range s.OrderedUsers() {
		out.Users = append(out.Users, UserSummary{
			ID:             u.ID,
			Name:           u.Name,
			JoinedAt:       u.JoinedAt,
			Submitted:      u.Preferences != nil,
			VotesCast:      len(u.Votes),
			VotingComplete: u.VotingComplete,
		})
	}
	return out
}

func matchView(s *model.Session) MatchResult {
	total := len(s.Candidates)
	r := MatchResult{
		Movie:        s.Current(),
		Index:        s.Cursor,
		TotalMatches: total,
		IsFirst:      s.Cursor <= 0,
		IsLast:       total == 0 || s.Cursor >= total-1,
	}
	if s.Criteria != nil {
		c := *s.Criteria
		r.Criteria = &c
	}
	return r
}

func position(s *model.Session, u *model.UserState) VotingPosition {
	p := VotingPosition{
		UserID:            u.ID,
		VotesCast:         len(u.Votes),
		Total:             len(s.Candidates),
		NextIndex:         -1,
		Complete:          u.VotingComplete,
		AllVotingComplete: s.AllVotingComplete(),
	}
	for i := range s.Candidates {
		if _, ok := u.Votes[s.Candidates[i].ID]; !ok {
			m := s.Candidates[i].Clone()
			p.Next = &m
			p.NextIndex = i
			break
		}
	}
	return p
}
