package session

import "pongarena/internal/model"

// reserve claims a slot for a player during matchmaking.
type reserve struct {
	PlayerID string
	Name     string
	Reply    chan<- reserveResult
}

type reserveResult struct {
	Role model.Role
	Err  error
}

// attach binds a live connection to the player's slot, superseding any
// previous one.
type attach struct {
	PlayerID string
	Conn     Conn
	Reply    chan<- reserveResult
}

type ready struct {
	Role model.Role
	Conn Conn
}

// leave is an explicit departure: player_leave, leave_waiting_room,
// matchmaking cancel or a normal close.
type leave struct {
	Role   model.Role
	Conn   Conn
	Reason string
}

// lost is an unexpected connection drop; the slot is held for the grace
// period.
type lost struct {
	Role model.Role
	Conn Conn
}
