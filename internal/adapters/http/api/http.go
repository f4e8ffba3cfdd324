// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/trev125/FlickPick/internal/adapters/http/swagger"
	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/internal/domain/session"
	"github.com/trev125/FlickPick/internal/domain/tally"
	"github.com/trev125/FlickPick/pkg/logger"
)

// Sessions is the session engine as seen by the HTTP handlers.
type Sessions interface {
	CreateSession(ctx context.Context, size int) (session.Summary, error)
	JoinSession(ctx context.Context, code, userID, name string) (session.JoinResult, error)
	SubmitPreferences(ctx context.Context, code, userID string, prefs model.PreferenceSet) (session.Summary, error)
	Summary(ctx context.Context, code string) (session.Summary, error)
	ComputeMatch(ctx context.Context, code string) (session.MatchResult, error)
	Reroll(ctx context.Context, code string) (session.MatchResult, error)
	Previous(ctx context.Context, code string) (session.MatchResult, error)
	Vote(ctx context.Context, code, userID, movieID string, value bool) (session.VotingPosition, error)
	VotingPosition(ctx context.Context, code, userID string) (session.VotingPosition, error)
	VotingResults(ctx context.Context, code string) (tally.Result, error)
	ListGenres(ctx context.Context, section string) ([]string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sessionHandler *SessionHandler
	votingHandler  *VotingHandler

	corsOrigins     []string
	createRateLimit int
	logger          logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(sessions Sessions, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionHandler:  NewSessionHandler(sessions),
		votingHandler:   NewVotingHandler(sessions),
		corsOrigins:     []string{"*"},
		createRateLimit: 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	return s
}

// Router builds the chi router with middleware and every route attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Register(r)

	r.Route("/api", func(r chi.Router) {
		r.Get("/genres", MetricsMiddleware(s.sessionHandler.HandleGenres, "genres"))

		r.With(s.createLimiter()).
			Post("/sessions", MetricsMiddleware(s.sessionHandler.HandleCreate, "create_session"))

		r.Route("/sessions/{code}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(s.sessionHandler.HandleSummary, "session"))
			r.Post("/join", MetricsMiddleware(s.sessionHandler.HandleJoin, "join"))
			r.Post("/preferences", MetricsMiddleware(s.sessionHandler.HandlePreferences, "preferences"))
			r.Get("/result", MetricsMiddleware(s.sessionHandler.HandleResult, "result"))
			r.Post("/reroll", MetricsMiddleware(s.sessionHandler.HandleReroll, "reroll"))
			r.Post("/previous", MetricsMiddleware(s.sessionHandler.HandlePrevious, "previous"))
			r.Post("/vote", MetricsMiddleware(s.votingHandler.HandleVote, "vote"))
			r.Get("/voting", MetricsMiddleware(s.votingHandler.HandlePosition, "voting"))
			r.Get("/voting/results", MetricsMiddleware(s.votingHandler.HandleResults, "voting_results"))
		})
	})
}

func (s *Server) createLimiter() func(http.Handler) http.Handler {
	if s.createRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(s.createRateLimit, time.Minute)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates engine failure kinds into HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case session.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	case session.IsInvalid(err):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	case session.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, session.ErrCatalogUnavailable):
		writeError(w, http.StatusBadGateway, "catalog_unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
