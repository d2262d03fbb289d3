package ws

import (
	"sync"

	"pongarena/internal/protocol"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
)

// Hub tracks the live match connection of every (session, player) pair so a
// newer connection can push out an older one and shutdown can reach them all.
type Hub struct {
	// session -> player -> conn
	conns map[string]map[string]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	log slog.Logger
}

// NewHub creates a hub and starts its loop.
func NewHub(log slog.Logger) *Hub {
	if log == nil {
		log = slog.Disabled
	}
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		log:        log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			players := h.conns[conn.SessionID]
			if players == nil {
				players = make(map[string]*Connection)
				h.conns[conn.SessionID] = players
			}
			if existing, ok := players[conn.PlayerID]; ok && existing != conn {
				existing.closeWith(protocol.CloseSuperseded, "superseded by a newer connection")
				h.log.Debugf("player %s superseded a connection in session %s", conn.PlayerID, conn.SessionID)
			}
			players[conn.PlayerID] = conn
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if players, ok := h.conns[conn.SessionID]; ok {
				if existing, ok := players[conn.PlayerID]; ok && existing == conn {
					delete(players, conn.PlayerID)
					if len(players) == 0 {
						delete(h.conns, conn.SessionID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a connection, closing any older one held by the same player
// in the same session.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes conn if it is still the current one for its player.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Count is the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, players := range h.conns {
		n += len(players)
	}
	return n
}

// Shutdown closes every registered connection with a going-away frame.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, players := range h.conns {
		for _, conn := range players {
			conn.closeWith(websocket.CloseGoingAway, "server shutting down")
		}
	}
}
