// Package tally classifies a candidate list by the participants' votes.
package tally

import "github.com/trev125/FlickPick/internal/domain/model"

// Result groups candidates by outcome. Every candidate appears in exactly one bucket.
type Result struct {
	BothYes []model.Movie `json:"bothYes"`
	User1No []model.Movie `json:"user1No"`
	User2No []model.Movie `json:"user2No"`
	BothNo  []model.Movie `json:"bothNo"`
}

// Tally classifies candidates in their original order. users is in join
// order; with a single user only BothYes and User1No are filled. A missing
// vote counts as no.
func Tally(candidates []model.Movie, users []*model.UserState) Result {
	r := Result{
		BothYes: []model.Movie{},
		User1No: []model.Movie{},
		User2No: []model.Movie{},
		BothNo:  []model.Movie{},
	}
	if len(users) == 0 {
		return r
	}

	for _, m := range candidates {
		first := yes(users[0], m.ID)
		second := true
		if len(users) > 1 {
			second = yes(users[1], m.ID)
		}

		switch {
		case first && second:
			r.BothYes = append(r.BothYes, m.Clone())
		case !first && !second:
			r.BothNo = append(r.BothNo, m.Clone())
		case !first:
			r.User1No = append(r.User1No, m.Clone())
		default:
			r.User2No = append(r.User2No, m.Clone())
		}
	}
	return r
}

func yes(u *model.UserState, movieID string) bool {
	v, ok := u.Votes[movieID]
	return ok && v
}
