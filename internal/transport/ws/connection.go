package ws

import (
	"errors"
	"sync"

	"pongarena/internal/model"
	"pongarena/internal/protocol"
	"pongarena/internal/session"

	"github.com/gorilla/websocket"
)

var (
	errConnClosed = errors.New("connection closed")
	errSendFull   = errors.New("send buffer full")
)

// Connection is one player's match socket. It satisfies session.Conn: Send
// queues without blocking and Close asks the write pump to end the socket.
type Connection struct {
	SessionID string
	PlayerID  string
	Name      string

	send   chan []byte
	closed chan struct{}
	once   sync.Once

	closeCode int
	closeText string

	// set by the read pump on join; read only there
	role model.Role
	sess *session.Session
}

func newConnection(sessionID string, id *model.Identity) *Connection {
	return &Connection{
		SessionID: sessionID,
		PlayerID:  id.PlayerID,
		Name:      id.Name,
		send:      make(chan []byte, 256),
		closed:    make(chan struct{}),
	}
}

// Send queues one frame. A client too slow to drain its buffer loses frames
// rather than stalling the session.
func (c *Connection) Send(b []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errSendFull
	}
}

// Close ends the connection with a normal closure once queued frames are
// flushed.
func (c *Connection) Close() error {
	c.closeWith(websocket.CloseNormalClosure, "match over")
	return nil
}

func (c *Connection) closeWith(code int, text string) {
	c.once.Do(func() {
		c.closeCode = code
		c.closeText = text
		close(c.closed)
	})
}

func (c *Connection) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Connection) sendError(msg string) {
	_ = c.Send(protocol.MustEncode(protocol.Error{Message: msg}))
}

func (c *Connection) joined() bool {
	return c.sess != nil
}
