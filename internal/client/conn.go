package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"pongarena/internal/model"
	"pongarena/internal/protocol"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrConnectionLost is returned once the reconnect budget is spent.
	ErrConnectionLost = errors.New("connection lost")
	// ErrSuperseded means another connection of the same player took over.
	ErrSuperseded = errors.New("connection superseded")
	// ErrNotConnected is returned by Send while no socket is open.
	ErrNotConnected = errors.New("not connected")

	errClosedNormally = errors.New("closed normally")
	errDropped        = errors.New("connection dropped")
	errMissedPongs    = errors.New("heartbeat missed")
)

const writeWait = 5 * time.Second

// ConnConfig tunes heartbeats and reconnection.
type ConnConfig struct {
	ReconnectDelay time.Duration
	MaxAttempts    int
	PingInterval   time.Duration
	MaxMissedPongs int
	Dialer         *websocket.Dialer
	Log            slog.Logger
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 3 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 5 * time.Second
	}
	if c.MaxMissedPongs <= 0 {
		c.MaxMissedPongs = 3
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	return c
}

// ConnState is what the connection manager is currently doing.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// ConnHooks connect the manager to whoever owns the match.
type ConnHooks struct {
	// Dispatch receives every server message except pong.
	Dispatch func(msgType string, data []byte)
	// ShouldReconnect reports whether a dropped socket should be re-opened.
	ShouldReconnect func() bool
	// OnState observes state changes; attempt counts reconnect attempts.
	OnState func(state ConnState, attempt int)
}

// ConnManager keeps one match socket alive: it joins on every open, sends
// heartbeats, and reconnects after unexpected drops.
type ConnManager struct {
	url       string
	sessionID string
	cfg       ConnConfig
	hooks     ConnHooks
	log       slog.Logger

	writeMu sync.Mutex
	ws      *websocket.Conn

	missed   atomic.Int32
	received atomic.Bool
}

// NewConnManager creates a manager for the session reachable at url.
func NewConnManager(url, sessionID string, cfg ConnConfig, hooks ConnHooks) *ConnManager {
	cfg = cfg.withDefaults()
	if hooks.Dispatch == nil {
		hooks.Dispatch = func(string, []byte) {}
	}
	if hooks.ShouldReconnect == nil {
		hooks.ShouldReconnect = func() bool { return true }
	}
	if hooks.OnState == nil {
		hooks.OnState = func(ConnState, int) {}
	}
	return &ConnManager{
		url:       url,
		sessionID: sessionID,
		cfg:       cfg,
		hooks:     hooks,
		log:       cfg.Log,
	}
}

// Run connects and keeps the connection alive until the server closes it
// normally, a terminal error occurs, or ctx is cancelled. Cancelling ctx
// closes the socket with a normal closure.
func (m *ConnManager) Run(ctx context.Context) error {
	defer m.hooks.OnState(StateClosed, 0)

	attempt := 0
	m.hooks.OnState(StateConnecting, 0)
	for {
		healthy, err := m.serve(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case errors.Is(err, errClosedNormally):
			return nil
		case errors.Is(err, model.ErrSessionNotFound),
			errors.Is(err, model.ErrSessionFull),
			errors.Is(err, ErrSuperseded),
			errors.Is(err, ErrUnauthorized):
			return err
		}

		if healthy {
			attempt = 0
		}
		if !m.hooks.ShouldReconnect() {
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
		attempt++
		if attempt > m.cfg.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrConnectionLost, m.cfg.MaxAttempts, err)
		}

		m.log.Infof("connection to session %s lost (%v), retry %d/%d in %s",
			m.sessionID, err, attempt, m.cfg.MaxAttempts, m.cfg.ReconnectDelay)
		m.hooks.OnState(StateReconnecting, attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.ReconnectDelay):
		}
	}
}

// serve runs one socket from dial to close. healthy reports whether the
// server answered on it at least once.
func (m *ConnManager) serve(ctx context.Context) (healthy bool, err error) {
	ws, resp, err := m.cfg.Dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return false, model.ErrSessionNotFound
			case http.StatusUnauthorized:
				return false, ErrUnauthorized
			}
		}
		return false, fmt.Errorf("%w: dial: %v", errDropped, err)
	}
	m.setConn(ws)
	defer func() {
		m.setConn(nil)
		ws.Close()
	}()

	m.missed.Store(0)
	m.received.Store(false)
	if err := m.Send(protocol.Join{SessionID: m.sessionID}); err != nil {
		return false, fmt.Errorf("%w: join: %v", errDropped, err)
	}
	m.hooks.OnState(StateConnected, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.readLoop(ws)
	})
	g.Go(func() error {
		return m.heartbeat(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			m.closeNormally(ws)
		}
		ws.Close()
		return nil
	})
	err = g.Wait()
	return m.received.Load(), err
}

func (m *ConnManager) readLoop(ws *websocket.Conn) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return classifyClose(err)
		}
		m.received.Store(true)
		t, err := protocol.DecodeType(data)
		if err != nil {
			m.log.Warnf("dropping malformed server message: %v", err)
			continue
		}
		if t == protocol.TypePong {
			m.missed.Store(0)
			continue
		}
		m.hooks.Dispatch(t, data)
	}
}

func classifyClose(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			return errClosedNormally
		case protocol.CloseSessionFull:
			return model.ErrSessionFull
		case protocol.CloseSessionMissing:
			return model.ErrSessionNotFound
		case protocol.CloseSuperseded:
			return ErrSuperseded
		}
	}
	return fmt.Errorf("%w: %v", errDropped, err)
}

func (m *ConnManager) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if int(m.missed.Add(1)) > m.cfg.MaxMissedPongs {
				return errMissedPongs
			}
			if err := m.Send(protocol.Ping{}); err != nil {
				return fmt.Errorf("%w: ping: %v", errDropped, err)
			}
		}
	}
}

// Send writes one message on the current socket.
func (m *ConnManager) Send(msg protocol.Message) error {
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.ws == nil {
		return ErrNotConnected
	}
	m.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return m.ws.WriteMessage(websocket.TextMessage, b)
}

func (m *ConnManager) setConn(ws *websocket.Conn) {
	m.writeMu.Lock()
	m.ws = ws
	m.writeMu.Unlock()
}

func (m *ConnManager) closeNormally(ws *websocket.Conn) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closed"))
}
