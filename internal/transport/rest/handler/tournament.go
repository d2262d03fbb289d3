package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"pongarena/internal/model"

	"github.com/gorilla/mux"
)

// BracketSessions creates remote sessions for bracket matches and reads
// back their reported results.
type BracketSessions interface {
	CreateBracketSession(ctx context.Context, originMatchID string, players [2]string) (*model.SessionRef, error)
	BracketResult(ctx context.Context, originMatchID string) (*model.BracketResult, error)
}

// TournamentHandler exposes session creation to the tournament service
type TournamentHandler struct {
	svc BracketSessions
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(svc BracketSessions) *TournamentHandler {
	return &TournamentHandler{svc: svc}
}

// BracketSessionRequest is the request body for opening a bracket session
type BracketSessionRequest struct {
	Player1ID string `json:"player1_id"`
	Player2ID string `json:"player2_id"`
}

// CreateSession handles POST /v1/tournaments/matches/{matchId}/session
//
//	@Summary	Open the remote session for a bracket match
//	@Tags		tournaments
//	@Accept		json
//	@Produce	json
//	@Param		matchId	path		string					true	"bracket match id"
//	@Param		body	body		BracketSessionRequest	true	"players"
//	@Success	201		{object}	model.SessionRef
//	@Failure	400		{object}	map[string]string
//	@Router		/tournaments/matches/{matchId}/session [post]
func (h *TournamentHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	var req BracketSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ref, err := h.svc.CreateBracketSession(r.Context(), matchID, [2]string{req.Player1ID, req.Player2ID})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ref)
}

// Result handles GET /v1/tournaments/matches/{matchId}/result
//
//	@Summary	Result reported for a bracket match
//	@Tags		tournaments
//	@Produce	json
//	@Param		matchId	path		string	true	"bracket match id"
//	@Success	200		{object}	model.BracketResult
//	@Failure	404		{object}	map[string]string
//	@Router		/tournaments/matches/{matchId}/result [get]
func (h *TournamentHandler) Result(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.BracketResult(r.Context(), mux.Vars(r)["matchId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
