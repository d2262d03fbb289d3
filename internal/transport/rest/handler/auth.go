package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"pongarena/internal/model"
	"pongarena/internal/service"
)

// TokenIssuer mints player tokens.
type TokenIssuer interface {
	IssuePlayerToken(name string) (*model.TokenResponse, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth TokenIssuer) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Token handles POST /v1/auth/token
//
//	@Summary	Issue a player token
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		model.TokenRequest	true	"display name"
//	@Success	201		{object}	model.TokenResponse
//	@Failure	400		{object}	map[string]string
//	@Router		/auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req model.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.auth.IssuePlayerToken(req.Name)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps domain sentinels to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrSessionClosed):
		writeError(w, http.StatusNotFound, model.ErrSessionNotFound.Error())
	case errors.Is(err, service.ErrNoResult):
		writeError(w, http.StatusNotFound, service.ErrNoResult.Error())
	case errors.Is(err, model.ErrSessionFull):
		writeError(w, http.StatusConflict, model.ErrSessionFull.Error())
	case errors.Is(err, model.ErrNotParticipant):
		writeError(w, http.StatusForbidden, model.ErrNotParticipant.Error())
	case errors.Is(err, service.ErrInvalidBracket):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
