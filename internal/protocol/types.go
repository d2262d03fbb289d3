package protocol

import "pongarena/internal/model"

// client -> server
const (
	TypeJoin             = "join"
	TypePing             = "ping"
	TypePlayerReady      = "player_ready"
	TypePaddleMove       = "paddle_move"
	TypePlayerLeave      = "player_leave"
	TypeLeaveWaitingRoom = "leave_waiting_room"
)

// server -> client
const (
	TypeWaitingForOpponent = "waiting_for_opponent"
	TypePlayersReady       = "players_ready"
	TypeAllPlayersReady    = "all_players_ready"
	TypeAssignRole         = "assign_role"
	TypeGameStart          = "game_start"
	TypeGameUpdate         = "game_update"
	TypeGameEnd            = "game_end"
	TypeGameAbandoned      = "game_abandoned"
	TypeError              = "error"
	TypePong               = "pong"
)

// Close codes outside the RFC 6455 range used by the server.
const (
	CloseSessionFull    = 4000
	CloseSessionMissing = 4004
	CloseSuperseded     = 4001
)

type Join struct {
	SessionID string `json:"session_id,omitempty"`
}

func (Join) MessageType() string { return TypeJoin }

type Ping struct{}

func (Ping) MessageType() string { return TypePing }

type PlayerReady struct{}

func (PlayerReady) MessageType() string { return TypePlayerReady }

type PaddleMove struct {
	Direction string `json:"direction"`
	Action    string `json:"action"`
	Seq       uint64 `json:"seq,omitempty"`
}

func (PaddleMove) MessageType() string { return TypePaddleMove }

type PlayerLeave struct {
	Reason string `json:"reason,omitempty"`
}

func (PlayerLeave) MessageType() string { return TypePlayerLeave }

type LeaveWaitingRoom struct{}

func (LeaveWaitingRoom) MessageType() string { return TypeLeaveWaitingRoom }

type WaitingForOpponent struct {
	Message string `json:"message,omitempty"`
}

func (WaitingForOpponent) MessageType() string { return TypeWaitingForOpponent }

type PlayersReady struct {
	PlayersConnected int    `json:"playersConnected"`
	Player1          string `json:"player1"`
	Player2          string `json:"player2"`
	Player1Ready     bool   `json:"player1_ready"`
	Player2Ready     bool   `json:"player2_ready"`
}

func (PlayersReady) MessageType() string { return TypePlayersReady }

type AllPlayersReady struct{}

func (AllPlayersReady) MessageType() string { return TypeAllPlayersReady }

type AssignRole struct {
	Role         model.Role `json:"role"`
	CanStartGame bool       `json:"can_start_game"`
}

func (AssignRole) MessageType() string { return TypeAssignRole }

type GameStart struct {
	Player1Name string `json:"player1_name"`
	Player2Name string `json:"player2_name"`
}

func (GameStart) MessageType() string { return TypeGameStart }

// GameUpdate is a snapshot of the authoritative state in canvas units.
type GameUpdate struct {
	BallX        float64 `json:"ballX"`
	BallY        float64 `json:"ballY"`
	Paddle1Y     float64 `json:"paddle1Y"`
	Paddle2Y     float64 `json:"paddle2Y"`
	Player1Score int     `json:"player1Score"`
	Player2Score int     `json:"player2Score"`
	Timestamp    int64   `json:"timestamp"` // server unix millis
	Seq          uint64  `json:"seq"`
}

func (GameUpdate) MessageType() string { return TypeGameUpdate }

type GameEnd struct {
	Player1Score int        `json:"player1_score"`
	Player2Score int        `json:"player2_score"`
	Winner       model.Role `json:"winner"`
}

func (GameEnd) MessageType() string { return TypeGameEnd }

type GameAbandoned struct {
	Player1Score int        `json:"player1_score"`
	Player2Score int        `json:"player2_score"`
	AbandonedBy  model.Role `json:"abandoned_by"`
	Winner       model.Role `json:"winner,omitempty"`
	Message      string     `json:"message,omitempty"`
}

func (GameAbandoned) MessageType() string { return TypeGameAbandoned }

type Error struct {
	Message string `json:"message"`
}

func (Error) MessageType() string { return TypeError }

type Pong struct{}

func (Pong) MessageType() string { return TypePong }
