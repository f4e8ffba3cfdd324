package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trev125/FlickPick/internal/domain/session"
)

// SessionHandler serves session lifecycle and browsing routes.
type SessionHandler struct {
	sessions Sessions
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// HandleCreate handles POST /api/sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.sessions.CreateSession(r.Context(), req.Size)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// HandleJoin handles POST /api/sessions/{code}/join.
func (h *SessionHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.sessions.JoinSession(r.Context(), codeParam(r), req.UserID, req.Name)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	status := http.StatusCreated
	if out.Rejoin {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

// HandlePreferences handles POST /api/sessions/{code}/preferences.
func (h *SessionHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.sessions.SubmitPreferences(r.Context(), codeParam(r), req.UserID, req.PreferenceSet)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSummary handles GET /api/sessions/{code}.
func (h *SessionHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.sessions.Summary(r.Context(), codeParam(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleResult handles GET /api/sessions/{code}/result. The first call
// computes the match; later calls return the memoized list.
func (h *SessionHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	h.match(w, r, h.sessions.ComputeMatch)
}

// HandleReroll handles POST /api/sessions/{code}/reroll.
func (h *SessionHandler) HandleReroll(w http.ResponseWriter, r *http.Request) {
	h.match(w, r, h.sessions.Reroll)
}

// HandlePrevious handles POST /api/sessions/{code}/previous.
func (h *SessionHandler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.match(w, r, h.sessions.Previous)
}

func (h *SessionHandler) match(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, code string) (session.MatchResult, error)) {
	out, err := fn(r.Context(), codeParam(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGenres handles GET /api/genres?section=.
func (h *SessionHandler) HandleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.sessions.ListGenres(r.Context(), r.URL.Query().Get("section"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

func codeParam(r *http.Request) string {
	return session.NormalizeCode(chi.URLParam(r, "code"))
}
