package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"pongarena/internal/model"
	"pongarena/internal/protocol"

	"github.com/decred/slog"
)

// EventKind says what changed in the match.
type EventKind int

const (
	EventRole EventKind = iota
	EventWaiting
	EventRoster
	EventOpponentReady
	EventAllReady
	EventStart
	EventEnd
	EventAbandoned
	EventError
	EventConnection
	EventFailed
)

// Event is one notification for the UI. Only the fields of its kind are set.
type Event struct {
	Kind      EventKind
	Role      model.Role
	CanStart  bool
	Roster    protocol.PlayersReady
	Start     protocol.GameStart
	End       protocol.GameEnd
	Abandoned protocol.GameAbandoned
	Message   string
	Conn      ConnState
	Attempt   int
	Err       error
}

// MatchConfig configures a client match.
type MatchConfig struct {
	Conn        ConnConfig
	AutoRelease time.Duration
	Log         slog.Logger
}

// Match is the client side of one session: it follows the server's
// lifecycle messages, feeds snapshots to the renderer and relays input.
type Match struct {
	SessionID string

	conn     *ConnManager
	relay    *InputRelay
	renderer *Renderer
	events   chan Event
	table    map[string]func([]byte)
	log      slog.Logger
	runCtx   context.Context

	mu     sync.Mutex
	status model.SessionStatus
	role   model.Role
	names  [2]string
	ready  [2]bool
}

// NewMatch prepares a match against the session socket at url.
func NewMatch(url, sessionID string, cfg MatchConfig) *Match {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Conn.Log == nil {
		cfg.Conn.Log = cfg.Log
	}
	m := &Match{
		SessionID: sessionID,
		renderer:  NewRenderer(),
		events:    make(chan Event, 64),
		log:       cfg.Log,
		status:    model.SessionWaiting,
		runCtx:    context.Background(),
	}
	m.table = map[string]func([]byte){
		protocol.TypeAssignRole:         m.onAssignRole,
		protocol.TypeWaitingForOpponent: m.onWaiting,
		protocol.TypePlayersReady:       m.onPlayersReady,
		protocol.TypeAllPlayersReady:    m.onAllReady,
		protocol.TypeGameStart:          m.onGameStart,
		protocol.TypeGameUpdate:         m.onGameUpdate,
		protocol.TypeGameEnd:            m.onGameEnd,
		protocol.TypeGameAbandoned:      m.onGameAbandoned,
		protocol.TypeError:              m.onError,
	}
	m.conn = NewConnManager(url, sessionID, cfg.Conn, ConnHooks{
		Dispatch:        m.dispatch,
		ShouldReconnect: m.shouldReconnect,
		OnState: func(s ConnState, attempt int) {
			m.emit(Event{Kind: EventConnection, Conn: s, Attempt: attempt})
		},
	})
	m.relay = NewInputRelay(m.conn, cfg.AutoRelease)
	return m
}

// Run plays the match until the server closes the session, the connection
// is lost for good, or ctx is cancelled. Events is closed when Run returns.
func (m *Match) Run(ctx context.Context) error {
	m.runCtx = ctx
	defer close(m.events)
	defer m.relay.Stop()

	err := m.conn.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		m.emit(Event{Kind: EventFailed, Err: err})
	}
	return err
}

// Events delivers lifecycle notifications in arrival order.
func (m *Match) Events() <-chan Event {
	return m.events
}

func (m *Match) Renderer() *Renderer {
	return m.renderer
}

func (m *Match) Relay() *InputRelay {
	return m.relay
}

// Ready tells the server this player is ready to start.
func (m *Match) Ready() error {
	return m.conn.Send(protocol.PlayerReady{})
}

// Leave abandons the match; while active this forfeits it.
func (m *Match) Leave(reason string) error {
	m.relay.Stop()
	return m.conn.Send(protocol.PlayerLeave{Reason: reason})
}

// CancelWaiting leaves matchmaking before an opponent arrived.
func (m *Match) CancelWaiting() error {
	return m.conn.Send(protocol.LeaveWaitingRoom{})
}

func (m *Match) Status() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Match) Role() model.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.role
}

// Names returns the display names of player1 and player2.
func (m *Match) Names() [2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names
}

func (m *Match) shouldReconnect() bool {
	s := m.Status()
	return s == model.SessionActive || s == model.SessionReadyCheck
}

func (m *Match) dispatch(msgType string, data []byte) {
	fn, ok := m.table[msgType]
	if !ok {
		m.log.Debugf("ignoring server message %q", msgType)
		return
	}
	fn(data)
}

func (m *Match) emit(e Event) {
	select {
	case m.events <- e:
	case <-m.runCtx.Done():
	}
}

func (m *Match) setStatus(s model.SessionStatus) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Match) onAssignRole(data []byte) {
	msg, err := protocol.Decode[protocol.AssignRole](data)
	if err != nil {
		m.log.Warnf("assign_role: %v", err)
		return
	}
	m.mu.Lock()
	m.role = msg.Role
	if msg.CanStartGame && m.status == model.SessionWaiting {
		m.status = model.SessionReadyCheck
	}
	m.mu.Unlock()
	m.emit(Event{Kind: EventRole, Role: msg.Role, CanStart: msg.CanStartGame})
}

func (m *Match) onWaiting(data []byte) {
	msg, _ := protocol.Decode[protocol.WaitingForOpponent](data)
	m.setStatus(model.SessionWaiting)
	m.emit(Event{Kind: EventWaiting, Message: msg.Message})
}

func (m *Match) onPlayersReady(data []byte) {
	msg, err := protocol.Decode[protocol.PlayersReady](data)
	if err != nil {
		m.log.Warnf("players_ready: %v", err)
		return
	}
	m.mu.Lock()
	if m.status == model.SessionWaiting {
		m.status = model.SessionReadyCheck
	}
	m.names = [2]string{msg.Player1, msg.Player2}
	was := m.ready
	m.ready = [2]bool{msg.Player1Ready, msg.Player2Ready}
	opp := m.role.Other().Index()
	opponentReadied := opp >= 0 && !was[opp] && m.ready[opp]
	m.mu.Unlock()

	m.emit(Event{Kind: EventRoster, Roster: msg})
	if opponentReadied {
		m.emit(Event{Kind: EventOpponentReady, Roster: msg})
	}
}

func (m *Match) onAllReady([]byte) {
	m.emit(Event{Kind: EventAllReady})
}

func (m *Match) onGameStart(data []byte) {
	msg, err := protocol.Decode[protocol.GameStart](data)
	if err != nil {
		m.log.Warnf("game_start: %v", err)
		return
	}
	m.mu.Lock()
	resumed := m.status == model.SessionActive
	m.status = model.SessionActive
	m.names = [2]string{msg.Player1Name, msg.Player2Name}
	m.mu.Unlock()

	if !resumed {
		m.renderer.Reset()
		m.relay.Reset()
	}
	m.emit(Event{Kind: EventStart, Start: msg})
}

func (m *Match) onGameUpdate(data []byte) {
	msg, err := protocol.Decode[protocol.GameUpdate](data)
	if err != nil {
		m.log.Warnf("game_update: %v", err)
		return
	}
	m.renderer.Push(msg)
}

func (m *Match) onGameEnd(data []byte) {
	msg, err := protocol.Decode[protocol.GameEnd](data)
	if err != nil {
		m.log.Warnf("game_end: %v", err)
		return
	}
	m.setStatus(model.SessionEnded)
	m.relay.Reset()
	m.emit(Event{Kind: EventEnd, End: msg})
}

func (m *Match) onGameAbandoned(data []byte) {
	msg, err := protocol.Decode[protocol.GameAbandoned](data)
	if err != nil {
		m.log.Warnf("game_abandoned: %v", err)
		return
	}
	m.setStatus(model.SessionAbandoned)
	m.relay.Reset()
	m.emit(Event{Kind: EventAbandoned, Abandoned: msg, Message: msg.Message})
}

func (m *Match) onError(data []byte) {
	msg, _ := protocol.Decode[protocol.Error](data)
	m.emit(Event{Kind: EventError, Message: msg.Message})
}
