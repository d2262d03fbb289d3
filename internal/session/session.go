package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pongarena/internal/game"
	"pongarena/internal/model"

	"github.com/decred/slog"
)

// Config tunes a session. Zero values fall back to the defaults below.
type Config struct {
	TickHz         int
	BroadcastHz    int
	Tuning         game.Tuning
	ForfeitScore   int
	ReconnectGrace time.Duration
	WaitingTimeout time.Duration
	Log            slog.Logger
	Now            func() time.Time
	Seed           int64
}

func (c Config) withDefaults() Config {
	if c.TickHz <= 0 {
		c.TickHz = game.DefaultTickHz
	}
	if c.BroadcastHz <= 0 {
		c.BroadcastHz = 30
	}
	if c.BroadcastHz > c.TickHz {
		c.BroadcastHz = c.TickHz
	}
	if c.Tuning.Width == 0 {
		c.Tuning = game.DefaultTuning()
	}
	if c.ForfeitScore <= 0 {
		c.ForfeitScore = 3
	}
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

type slot struct {
	playerID string
	name     string
	conn     Conn
	ready    bool
	lostAt   time.Time
}

func (sl *slot) taken() bool {
	return sl.playerID != ""
}

// Session is the authoritative owner of one match. All state below the
// inbox is touched only by the goroutine running Run.
type Session struct {
	ID            string
	OriginMatchID string
	Kind          model.SessionKind

	cfg      Config
	log      slog.Logger
	inbox    chan any
	done     chan struct{}
	intents  [2]intentBox
	onFinish func(*Session, *model.MatchResult)

	viewMu sync.RWMutex
	view   model.SessionMeta

	status    model.SessionStatus
	slots     [2]slot
	invited   []string
	state     game.State
	rng       *rand.Rand
	seq       uint64
	createdAt time.Time
	startedAt time.Time
	result    *model.MatchResult
}

// Options describe how a session was created.
type Options struct {
	ID            string
	Kind          model.SessionKind
	OriginMatchID string
	// Invited restricts the roster to these player ids when set.
	Invited []string
	// OnFinish runs once after the session stopped; result is nil when the
	// session was discarded before the match started.
	OnFinish func(*Session, *model.MatchResult)
}

func New(opts Options, cfg Config) *Session {
	cfg = cfg.withDefaults()
	kind := opts.Kind
	if kind == "" {
		kind = model.KindMatchmaking
	}
	s := &Session{
		ID:            opts.ID,
		OriginMatchID: opts.OriginMatchID,
		Kind:          kind,
		cfg:           cfg,
		log:           cfg.Log,
		inbox:         make(chan any, 64),
		done:          make(chan struct{}),
		onFinish:      opts.OnFinish,
		status:        model.SessionWaiting,
		invited:       opts.Invited,
		state:         game.NewState(cfg.Tuning),
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		createdAt:     cfg.Now(),
	}
	s.publish()
	return s
}

// Run drives the session until it reaches a terminal status or ctx ends.
func (s *Session) Run(ctx context.Context) {
	tick := time.NewTicker(time.Second / time.Duration(s.cfg.TickHz))
	defer tick.Stop()
	bcast := time.NewTicker(time.Second / time.Duration(s.cfg.BroadcastHz))
	defer bcast.Stop()

	for !s.status.Terminal() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case cmd := <-s.inbox:
			s.handle(cmd)
		case <-tick.C:
			s.tick()
		case <-bcast.C:
			s.broadcastSnapshot()
		}
	}

	close(s.done)
	if s.onFinish != nil {
		s.onFinish(s, s.result)
	}
}

// Done is closed once the session stopped accepting commands.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Reserve claims a slot for playerID, or returns the role it already holds.
func (s *Session) Reserve(ctx context.Context, playerID, name string) (model.Role, error) {
	reply := make(chan reserveResult, 1)
	return s.call(ctx, reserve{PlayerID: playerID, Name: name, Reply: reply}, reply)
}

// Attach binds conn to the player's slot and returns the player's role.
func (s *Session) Attach(ctx context.Context, playerID string, conn Conn) (model.Role, error) {
	reply := make(chan reserveResult, 1)
	return s.call(ctx, attach{PlayerID: playerID, Conn: conn, Reply: reply}, reply)
}

func (s *Session) call(ctx context.Context, cmd any, reply <-chan reserveResult) (model.Role, error) {
	if err := s.enqueue(ctx, cmd); err != nil {
		return model.RoleNone, err
	}
	select {
	case r := <-reply:
		return r.Role, r.Err
	case <-s.done:
		return model.RoleNone, model.ErrSessionClosed
	case <-ctx.Done():
		return model.RoleNone, ctx.Err()
	}
}

func (s *Session) enqueue(ctx context.Context, cmd any) error {
	select {
	case s.inbox <- cmd:
		return nil
	case <-s.done:
		return model.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready signals that the player in role is ready to start.
func (s *Session) Ready(ctx context.Context, role model.Role, conn Conn) error {
	return s.enqueue(ctx, ready{Role: role, Conn: conn})
}

// Leave records an explicit departure. A nil conn matches any connection.
func (s *Session) Leave(ctx context.Context, role model.Role, conn Conn, reason string) error {
	return s.enqueue(ctx, leave{Role: role, Conn: conn, Reason: reason})
}

// Lost records an unexpected drop of conn.
func (s *Session) Lost(ctx context.Context, role model.Role, conn Conn) error {
	return s.enqueue(ctx, lost{Role: role, Conn: conn})
}

// Move replaces the player's intent. It never blocks and is safe to call
// from any goroutine; the tick picks it up.
func (s *Session) Move(role model.Role, d model.Direction, a model.MoveAction, seq uint64) model.Intent {
	i := role.Index()
	if i < 0 {
		return model.Intent{}
	}
	return s.intents[i].apply(d, a, seq)
}

// Meta returns the last published view of the session.
func (s *Session) Meta() model.SessionMeta {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view
}

func (s *Session) Status() model.SessionStatus {
	return s.Meta().Status
}

func (s *Session) publish() {
	m := model.SessionMeta{
		ID:            s.ID,
		Kind:          s.Kind,
		Status:        s.status,
		OriginMatchID: s.OriginMatchID,
		Player1Score:  s.state.Scores[0],
		Player2Score:  s.state.Scores[1],
		Winner:        s.state.Winner,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.cfg.Now(),
	}
	for i := range s.slots {
		sl := &s.slots[i]
		*m.Slot(model.RoleAt(i)) = model.SlotInfo{
			PlayerID:  sl.playerID,
			Name:      sl.name,
			Connected: sl.conn != nil,
			Ready:     sl.ready,
		}
	}
	s.viewMu.Lock()
	s.view = m
	s.viewMu.Unlock()
}
