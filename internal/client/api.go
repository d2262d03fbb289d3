package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pongarena/internal/model"
)

// ErrUnauthorized is returned when the server rejects the player token.
var ErrUnauthorized = errors.New("unauthorized")

// API wraps the pongarena REST endpoints
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPI creates a client for the server at baseURL (http or https).
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Token returns the player token in use.
func (a *API) Token() string {
	return a.token
}

// SetToken sets the bearer token used for authenticated calls.
func (a *API) SetToken(token string) {
	a.token = token
}

// Login issues a player token for name and keeps it for later calls.
func (a *API) Login(ctx context.Context, name string) (*model.TokenResponse, error) {
	var resp model.TokenResponse
	if err := a.do(ctx, http.MethodPost, "/v1/auth/token", model.TokenRequest{Name: name}, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	a.token = resp.Token
	return &resp, nil
}

// FindMatch pairs the player with a waiting opponent or opens a session.
func (a *API) FindMatch(ctx context.Context) (*model.SessionRef, error) {
	var ref model.SessionRef
	if err := a.do(ctx, http.MethodPost, "/v1/matches", nil, &ref); err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	return &ref, nil
}

// JoinMatch claims a slot in a known session.
func (a *API) JoinMatch(ctx context.Context, sessionID string) (*model.SessionRef, error) {
	var ref model.SessionRef
	if err := a.do(ctx, http.MethodPost, "/v1/matches/"+url.PathEscape(sessionID)+"/join", nil, &ref); err != nil {
		return nil, fmt.Errorf("join match: %w", err)
	}
	return &ref, nil
}

// CancelMatch leaves matchmaking.
func (a *API) CancelMatch(ctx context.Context, sessionID string) error {
	if err := a.do(ctx, http.MethodPost, "/v1/matches/"+url.PathEscape(sessionID)+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("cancel match: %w", err)
	}
	return nil
}

// Session returns the current view of a session.
func (a *API) Session(ctx context.Context, sessionID string) (*model.SessionMeta, error) {
	var meta model.SessionMeta
	if err := a.do(ctx, http.MethodGet, "/v1/matches/"+url.PathEscape(sessionID), nil, &meta); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &meta, nil
}

// MatchURL is the WebSocket address of a session, token included.
func (a *API) MatchURL(sessionID string) string {
	base := a.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/v1/ws/matches/" + url.PathEscape(sessionID) + "?token=" + url.QueryEscape(a.token)
}

func (a *API) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return statusError(resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusError maps an error response back to the domain sentinel.
func statusError(code int, msg string) error {
	var sentinel error
	switch code {
	case http.StatusNotFound:
		sentinel = model.ErrSessionNotFound
	case http.StatusConflict:
		sentinel = model.ErrSessionFull
	case http.StatusForbidden:
		sentinel = model.ErrNotParticipant
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	default:
		if msg == "" {
			msg = http.StatusText(code)
		}
		return fmt.Errorf("server returned %d: %s", code, msg)
	}
	return sentinel
}
