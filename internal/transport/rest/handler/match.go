package handler

import (
	"context"
	"net/http"
	"strconv"

	"pongarena/internal/model"
	"pongarena/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// MatchService is the session-creation boundary the match endpoints use.
type MatchService interface {
	CreateOrJoinSession(ctx context.Context, id model.Identity) (*model.SessionRef, error)
	JoinSession(ctx context.Context, sessionID string, id model.Identity) (*model.SessionRef, error)
	CancelSession(ctx context.Context, sessionID, playerID string) error
	GetSession(ctx context.Context, sessionID string) (*model.SessionMeta, error)
	CurrentSession(ctx context.Context, playerID string) (*model.SessionMeta, error)
	History(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, playerID string) (int64, error)
}

// MatchHandler handles matchmaking, session and history endpoints
type MatchHandler struct {
	svc MatchService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(svc MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

// Create handles POST /v1/matches
//
//	@Summary	Find or open a match
//	@Tags		matches
//	@Produce	json
//	@Success	200	{object}	model.SessionRef
//	@Router		/matches [post]
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	ref, err := h.svc.CreateOrJoinSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ref)
}

// Join handles POST /v1/matches/{id}/join
//
//	@Summary	Join a match by id
//	@Tags		matches
//	@Produce	json
//	@Param		id	path		string	true	"session id"
//	@Success	200	{object}	model.SessionRef
//	@Failure	404	{object}	map[string]string
//	@Failure	409	{object}	map[string]string
//	@Router		/matches/{id}/join [post]
func (h *MatchHandler) Join(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	ref, err := h.svc.JoinSession(r.Context(), sessionID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ref)
}

// Get handles GET /v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	meta, err := h.svc.GetSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// Current handles GET /v1/matches/current
func (h *MatchHandler) Current(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.CurrentSession(r.Context(), middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// Cancel handles POST /v1/matches/{id}/cancel
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := h.svc.CancelSession(r.Context(), sessionID, middleware.GetPlayerID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// History handles GET /v1/players/{id}/matches
func (h *MatchHandler) History(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["id"]

	records, err := h.svc.History(r.Context(), playerID, queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []model.MatchRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": records})
}

// Leaderboard handles GET /v1/leaderboard
func (h *MatchHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Leaderboard(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

// Rank handles GET /v1/players/{id}/rank
//
//	@Summary	Leaderboard position of a player, 0 when unranked
//	@Tags		players
//	@Produce	json
//	@Param		id	path		string	true	"player id"
//	@Success	200	{object}	map[string]interface{}
//	@Router		/players/{id}/rank [get]
func (h *MatchHandler) Rank(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["id"]

	rank, err := h.svc.Rank(r.Context(), playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"playerId": playerID, "rank": rank})
}

// queryLimit reads ?limit=, leaving range checks to the service.
func queryLimit(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return 0
}
