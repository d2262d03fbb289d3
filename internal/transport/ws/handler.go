package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pongarena/internal/model"
	"pongarena/internal/protocol"
	"pongarena/internal/session"

	"github.com/decred/slog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 20 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	commandWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Lobby resolves and cancels live sessions.
type Lobby interface {
	Get(sessionID string) (*session.Session, error)
	Cancel(ctx context.Context, sessionID, playerID string) error
}

// TokenValidator turns a bearer token into a player identity.
type TokenValidator interface {
	ValidatePlayerToken(token string) (*model.Identity, error)
}

type messageHandler func(h *Handler, c *Connection, data []byte)

var dispatch = map[string]messageHandler{
	protocol.TypeJoin:             (*Handler).onJoin,
	protocol.TypePing:             (*Handler).onPing,
	protocol.TypePlayerReady:      (*Handler).onReady,
	protocol.TypePaddleMove:       (*Handler).onPaddleMove,
	protocol.TypePlayerLeave:      (*Handler).onLeave,
	protocol.TypeLeaveWaitingRoom: (*Handler).onLeaveWaitingRoom,
}

// Handler handles match WebSocket connections
type Handler struct {
	hub   *Hub
	lobby Lobby
	auth  TokenValidator
	log   slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, lobby Lobby, auth TokenValidator, log slog.Logger) *Handler {
	if log == nil {
		log = slog.Disabled
	}
	return &Handler{
		hub:   hub,
		lobby: lobby,
		auth:  auth,
		log:   log,
	}
}

// MatchWS handles GET /v1/ws/matches/{id}
func (h *Handler) MatchWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	id, err := h.auth.ValidatePlayerToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := h.lobby.Get(sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade error: %v", err)
		return
	}

	conn := newConnection(sessionID, id)
	h.log.Debugf("player %s connected to session %s", id.PlayerID, sessionID)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.closeWith(websocket.CloseNormalClosure, "")
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			h.disconnected(conn, err)
			return
		}
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleMessage(conn, data)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case msg := <-conn.send:
			if err := h.write(wsConn, msg); err != nil {
				return
			}

		case <-conn.closed:
			// flush what the session queued before closing
			for n := len(conn.send); n > 0; n-- {
				if err := h.write(wsConn, <-conn.send); err != nil {
					return
				}
			}
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			wsConn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(conn.closeCode, conn.closeText))
			return

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(wsConn *websocket.Conn, msg []byte) error {
	wsConn.SetWriteDeadline(time.Now().Add(writeWait))
	w, err := wsConn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(msg)
	return w.Close()
}

func (h *Handler) handleMessage(c *Connection, data []byte) {
	t, err := protocol.DecodeType(data)
	if err != nil {
		h.malformed(c, err)
		return
	}
	fn, ok := dispatch[t]
	if !ok {
		h.log.Debugf("player %s sent unknown message type %q", c.PlayerID, t)
		c.sendError("unknown message type: " + t)
		return
	}
	if !c.joined() && t != protocol.TypeJoin && t != protocol.TypePing {
		c.sendError("join the session first")
		return
	}
	fn(h, c, data)
}

func (h *Handler) malformed(c *Connection, err error) {
	h.log.Debugf("player %s sent a malformed message: %v", c.PlayerID, err)
	c.sendError("malformed message")
}

func (h *Handler) onJoin(c *Connection, data []byte) {
	msg, err := protocol.Decode[protocol.Join](data)
	if err != nil {
		h.malformed(c, err)
		return
	}
	if msg.SessionID != "" && msg.SessionID != c.SessionID {
		c.sendError("join targets a different session")
		return
	}

	s, err := h.lobby.Get(c.SessionID)
	if err != nil {
		c.sendError("session not found")
		c.closeWith(protocol.CloseSessionMissing, "session not found")
		return
	}

	h.hub.Register(c)

	ctx, cancel := context.WithTimeout(context.Background(), commandWait)
	defer cancel()
	role, err := s.Attach(ctx, c.PlayerID, c)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrSessionFull), errors.Is(err, model.ErrNotParticipant):
		c.sendError(err.Error())
		c.closeWith(protocol.CloseSessionFull, "session is full")
		return
	case errors.Is(err, model.ErrSessionClosed):
		c.sendError("session not found")
		c.closeWith(protocol.CloseSessionMissing, "session not found")
		return
	default:
		h.log.Warnf("attach %s to session %s: %v", c.PlayerID, c.SessionID, err)
		c.sendError("could not join session")
		return
	}

	c.role = role
	c.sess = s
	h.log.Infof("player %s joined session %s as %s", c.PlayerID, c.SessionID, role)
}

func (h *Handler) onPing(c *Connection, _ []byte) {
	_ = c.Send(protocol.MustEncode(protocol.Pong{}))
}

func (h *Handler) onReady(c *Connection, _ []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), commandWait)
	defer cancel()
	if err := c.sess.Ready(ctx, c.role, c); err != nil {
		h.log.Debugf("ready from %s ignored: %v", c.PlayerID, err)
	}
}

func (h *Handler) onPaddleMove(c *Connection, data []byte) {
	msg, err := protocol.Decode[protocol.PaddleMove](data)
	if err != nil {
		h.malformed(c, err)
		return
	}
	d, a, err := model.ParseMove(msg.Direction, msg.Action)
	if err != nil {
		h.malformed(c, err)
		return
	}
	c.sess.Move(c.role, d, a, msg.Seq)
}

func (h *Handler) onLeave(c *Connection, data []byte) {
	msg, err := protocol.Decode[protocol.PlayerLeave](data)
	if err != nil {
		h.malformed(c, err)
		return
	}
	reason := msg.Reason
	if reason == "" {
		reason = "left"
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandWait)
	defer cancel()
	if err := c.sess.Leave(ctx, c.role, c, reason); err != nil {
		h.log.Debugf("leave from %s ignored: %v", c.PlayerID, err)
	}
}

func (h *Handler) onLeaveWaitingRoom(c *Connection, _ []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), commandWait)
	defer cancel()
	if err := h.lobby.Cancel(ctx, c.SessionID, c.PlayerID); err != nil {
		h.log.Debugf("cancel from %s ignored: %v", c.PlayerID, err)
	}
}

// disconnected reports a dropped socket to the session. Clean closes count as
// leaving; anything else starts the reconnect grace.
func (h *Handler) disconnected(c *Connection, err error) {
	if !c.joined() || c.isClosed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandWait)
	defer cancel()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.log.Debugf("player %s closed session %s", c.PlayerID, c.SessionID)
		_ = c.sess.Leave(ctx, c.role, c, "closed")
		return
	}
	h.log.Infof("player %s dropped from session %s: %v", c.PlayerID, c.SessionID, err)
	_ = c.sess.Lost(ctx, c.role, c)
}
