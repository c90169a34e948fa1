// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/highscores/internal/domain/leaderboard"
	"github.com/okian/highscores/internal/domain/model"
	"github.com/okian/highscores/pkg/logger"
)

// Leaderboard is the set of operations the HTTP layer calls into.
type Leaderboard interface {
	RegisterUser(ctx context.Context, req model.RegisterRequest) (model.Registration, error)
	UpdateScore(ctx context.Context, req model.UpdateRequest) (model.ScoreUpdate, error)
	GetHighscore(ctx context.Context, id int64) (int64, error)
	GetLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	feedHandler        *FeedHandler
}

// NewServer creates a new API server with all handlers. A nil feed leaves
// GET /feed unregistered.
func NewServer(deps Leaderboard, statsProvider StatsProvider, feed FeedSource) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps),
	}
	if feed != nil {
		s.feedHandler = NewFeedHandler(feed)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", instrument(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", instrument(s.statsHandler.HandleStats, "stats"))

	lb := s.leaderboardHandler
	mux.HandleFunc("GET /leaderboard", instrument(lb.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /leaderboard/{id}", instrument(lb.HandleGetHighscore, "highscore"))
	mux.HandleFunc("POST /leaderboard/{first}/{second}", instrument(lb.HandlePost, "leaderboard_write"))
	mux.HandleFunc("PUT /leaderboard/{id}/{score}", instrument(lb.HandleUpdateScore, "update_score"))

	if s.feedHandler != nil {
		mux.HandleFunc("GET /feed", instrument(s.feedHandler.HandleFeed, "feed"))
	}
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

// writeServiceError maps leaderboard errors to a status: not found is 404,
// rejected input is 400, anything else is a 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, leaderboard.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, leaderboard.ErrInvalidRequest), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		logger.Named("api").Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, errors.New("internal error")))
	}
}
