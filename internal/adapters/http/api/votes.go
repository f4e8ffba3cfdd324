package api

import (
	"net/http"
	"strings"
)

// VotingHandler serves the voting routes.
type VotingHandler struct {
	sessions Sessions
}

// NewVotingHandler creates a new voting handler.
func NewVotingHandler(sessions Sessions) *VotingHandler {
	return &VotingHandler{sessions: sessions}
}

// HandleVote handles POST /api/sessions/{code}/vote.
func (h *VotingHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.sessions.Vote(r.Context(), codeParam(r), req.UserID, req.MovieID, *req.Vote)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePosition handles GET /api/sessions/{code}/voting?userId=.
func (h *VotingHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingUser)
		return
	}
	out, err := h.sessions.VotingPosition(r.Context(), codeParam(r), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleResults handles GET /api/sessions/{code}/voting/results.
func (h *VotingHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	out, err := h.sessions.VotingResults(r.Context(), codeParam(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
