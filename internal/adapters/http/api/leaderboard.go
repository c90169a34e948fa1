package api

import (
	"net/http"
	"strconv"

	"github.com/okian/highscores/internal/domain/model"
)

// LeaderboardHandler serves the /leaderboard routes.
type LeaderboardHandler struct {
	deps Leaderboard
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

type leaderboardResponse struct {
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

type registrationResponse struct {
	Status   string                  `json:"status"`
	Username string                  `json:"username"`
	Entry    *model.LeaderboardEntry `json:"entry,omitempty"`
}

type updateResponse struct {
	Status string `json:"status"`
	model.ScoreUpdate
}

// HandleGetLeaderboard handles GET /leaderboard.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	entries, err := h.deps.GetLeaderboard(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: entries})
}

// HandleGetHighscore handles GET /leaderboard/{id}. The body is the bare score.
func (h *LeaderboardHandler) HandleGetHighscore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_highscore"
	id, err := parseInt(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	score, err := h.deps.GetHighscore(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// HandlePost handles POST /leaderboard/{first}/{second}. A first segment
// that parses as a base-10 integer, sign allowed ("7", "+7", "-7"), is an
// entry id and the request updates its score; anything else is a username
// to register.
func (h *LeaderboardHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if _, err := parseInt(r.PathValue("first")); err == nil {
		h.updateScore(w, r, r.PathValue("first"), r.PathValue("second"))
		return
	}
	h.register(w, r, r.PathValue("first"), r.PathValue("second"))
}

// HandleUpdateScore handles PUT /leaderboard/{id}/{score}.
func (h *LeaderboardHandler) HandleUpdateScore(w http.ResponseWriter, r *http.Request) {
	h.updateScore(w, r, r.PathValue("id"), r.PathValue("score"))
}

func (h *LeaderboardHandler) register(w http.ResponseWriter, r *http.Request, username, rawScore string) {
	const op = "api.register_user"
	score, err := parseInt(rawScore)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	reg, err := h.deps.RegisterUser(r.Context(), model.RegisterRequest{Username: username, Highscore: score})
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	resp := registrationResponse{Status: reg.Outcome.String(), Username: reg.Username}
	if reg.Created() {
		resp.Entry = &reg.Entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LeaderboardHandler) updateScore(w http.ResponseWriter, r *http.Request, rawID, rawScore string) {
	const op = "api.update_score"
	id, err := parseInt(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	score, err := parseInt(rawScore)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	upd, err := h.deps.UpdateScore(r.Context(), model.UpdateRequest{ID: id, Highscore: score})
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Status: "updated", ScoreUpdate: upd})
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
