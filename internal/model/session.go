package model

import (
	"errors"
	"time"
)

type SessionStatus string

const (
	SessionWaiting    SessionStatus = "waiting"
	SessionReadyCheck SessionStatus = "ready_check"
	SessionActive     SessionStatus = "active"
	SessionEnded      SessionStatus = "ended"
	SessionAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether no further transition can leave the status.
func (s SessionStatus) Terminal() bool {
	return s == SessionEnded || s == SessionAbandoned
}

// Open reports whether the session still holds its players.
func (s SessionStatus) Open() bool {
	return s == SessionWaiting || s == SessionReadyCheck || s == SessionActive
}

type Role string

const (
	RoleNone    Role = ""
	RolePlayer1 Role = "player1"
	RolePlayer2 Role = "player2"
)

// Index maps a role to its slot position.
func (r Role) Index() int {
	switch r {
	case RolePlayer1:
		return 0
	case RolePlayer2:
		return 1
	}
	return -1
}

// Other returns the opposing role.
func (r Role) Other() Role {
	switch r {
	case RolePlayer1:
		return RolePlayer2
	case RolePlayer2:
		return RolePlayer1
	}
	return RoleNone
}

// RoleAt returns the role bound to slot i.
func RoleAt(i int) Role {
	if i == 0 {
		return RolePlayer1
	}
	return RolePlayer2
}

type SessionKind string

const (
	KindMatchmaking SessionKind = "matchmaking"
	KindTournament  SessionKind = "tournament"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFull     = errors.New("session is full")
	ErrNotParticipant  = errors.New("player is not part of this session")
	ErrSessionClosed   = errors.New("session is closed")
)

// SessionRef is handed back by the session-creation boundary
type SessionRef struct {
	SessionID string        `json:"session_id"`
	Role      Role          `json:"role"`
	Status    SessionStatus `json:"status"`
}

// SlotInfo describes one player slot without its connection
type SlotInfo struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
}

// SessionMeta is the public, cacheable view of a session
type SessionMeta struct {
	ID            string        `json:"id"`
	Kind          SessionKind   `json:"kind"`
	Status        SessionStatus `json:"status"`
	OriginMatchID string        `json:"originMatchId,omitempty"`
	Player1       SlotInfo      `json:"player1"`
	Player2       SlotInfo      `json:"player2"`
	Player1Score  int           `json:"player1Score"`
	Player2Score  int           `json:"player2Score"`
	Winner        Role          `json:"winner,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Slot returns the slot info for a role.
func (m *SessionMeta) Slot(r Role) *SlotInfo {
	if r == RolePlayer2 {
		return &m.Player2
	}
	return &m.Player1
}

// RoleOf returns the role held by playerID, or RoleNone.
func (m SessionMeta) RoleOf(playerID string) Role {
	switch playerID {
	case "":
		return RoleNone
	case m.Player1.PlayerID:
		return RolePlayer1
	case m.Player2.PlayerID:
		return RolePlayer2
	}
	return RoleNone
}
