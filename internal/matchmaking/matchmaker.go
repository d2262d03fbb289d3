package matchmaking

import (
	"context"
	"errors"
	"slices"
	"sync"

	"pongarena/internal/model"
	"pongarena/internal/session"

	"github.com/decred/slog"
	"github.com/google/uuid"
)

// FinishFunc receives every session once it stopped. r is nil for sessions
// discarded before their match started.
type FinishFunc func(s *session.Session, r *model.MatchResult)

// Matchmaker owns every live session and the pool of sessions still waiting
// for a second player.
type Matchmaker struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	waiting  []string
	byPlayer map[string]string
	bracket  map[string]string

	ctx      context.Context
	wg       sync.WaitGroup
	cfg      session.Config
	log      slog.Logger
	onFinish FinishFunc
	newID    func() string
}

// New returns a matchmaker whose sessions run until ctx is cancelled.
func New(ctx context.Context, cfg session.Config, log slog.Logger, onFinish FinishFunc) *Matchmaker {
	if log == nil {
		log = slog.Disabled
	}
	return &Matchmaker{
		sessions: make(map[string]*session.Session),
		byPlayer: make(map[string]string),
		bracket:  make(map[string]string),
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		onFinish: onFinish,
		newID:    uuid.NewString,
	}
}

// RequestMatch pairs the player with the oldest waiting session, or opens a
// new one. A player who already holds an open session gets it back.
func (m *Matchmaker) RequestMatch(ctx context.Context, playerID, name string) (model.SessionRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPlayer[playerID]; ok {
		if s := m.sessions[id]; s != nil && s.Status().Open() {
			return ref(s, s.Meta().RoleOf(playerID)), nil
		}
		delete(m.byPlayer, playerID)
	}
	// the index is dropped by Cancel on another session; the pool may still
	// hold one of the player's own
	for _, id := range m.waiting {
		s := m.sessions[id]
		if s == nil {
			continue
		}
		if role := s.Meta().RoleOf(playerID); role != model.RoleNone {
			m.byPlayer[playerID] = id
			return ref(s, role), nil
		}
	}

	for len(m.waiting) > 0 {
		id := m.waiting[0]
		m.waiting = m.waiting[1:]
		s := m.sessions[id]
		if s == nil {
			continue
		}
		role, err := s.Reserve(ctx, playerID, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				m.waiting = append([]string{id}, m.waiting...)
				return model.SessionRef{}, ctxErr
			}
			m.log.Debugf("skipping waiting session %s: %v", id, err)
			continue
		}
		m.byPlayer[playerID] = id
		m.log.Infof("paired %s into session %s as %s", playerID, id, role)
		return ref(s, role), nil
	}

	s := m.spawn(session.Options{Kind: model.KindMatchmaking})
	role, err := s.Reserve(ctx, playerID, name)
	if err != nil {
		return model.SessionRef{}, err
	}
	m.byPlayer[playerID] = s.ID
	m.waiting = append(m.waiting, s.ID)
	m.log.Infof("opened session %s for %s", s.ID, playerID)
	return ref(s, role), nil
}

// JoinMatch attaches the player to a known session by id.
func (m *Matchmaker) JoinMatch(ctx context.Context, sessionID, playerID, name string) (model.SessionRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[sessionID]
	if s == nil {
		return model.SessionRef{}, model.ErrSessionNotFound
	}
	role, err := s.Reserve(ctx, playerID, name)
	if errors.Is(err, model.ErrSessionClosed) {
		return model.SessionRef{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.SessionRef{}, err
	}
	m.byPlayer[playerID] = sessionID
	if meta := s.Meta(); meta.Player1.PlayerID != "" && meta.Player2.PlayerID != "" {
		m.dropWaiting(sessionID)
	}
	return ref(s, role), nil
}

// CreateBracketSession opens a session reserved to the two bracket players.
// Repeated calls for the same bracket match return the open session.
func (m *Matchmaker) CreateBracketSession(originMatchID string, playerIDs [2]string) model.SessionRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.bracket[originMatchID]; ok {
		if s := m.sessions[id]; s != nil && s.Status().Open() {
			return ref(s, model.RoleNone)
		}
	}
	s := m.spawn(session.Options{
		Kind:          model.KindTournament,
		OriginMatchID: originMatchID,
		Invited:       playerIDs[:],
	})
	m.bracket[originMatchID] = s.ID
	m.log.Infof("opened session %s for bracket match %s", s.ID, originMatchID)
	return ref(s, model.RoleNone)
}

// Cancel withdraws the player from a session. The session leaves the waiting
// pool before the player's departure reaches it, so no later pairing can
// land in it.
func (m *Matchmaker) Cancel(ctx context.Context, sessionID, playerID string) error {
	m.mu.Lock()
	s := m.sessions[sessionID]
	if s == nil {
		m.mu.Unlock()
		return model.ErrSessionNotFound
	}
	role := s.Meta().RoleOf(playerID)
	if role == model.RoleNone {
		m.mu.Unlock()
		return model.ErrNotParticipant
	}
	m.dropWaiting(sessionID)
	if m.byPlayer[playerID] == sessionID {
		delete(m.byPlayer, playerID)
	}
	m.mu.Unlock()

	if err := s.Leave(ctx, role, nil, "cancelled"); err != nil && !errors.Is(err, model.ErrSessionClosed) {
		return err
	}
	return nil
}

// Get returns a live session.
func (m *Matchmaker) Get(sessionID string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[sessionID]
	if s == nil {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

// Waiting returns the ids currently in the waiting pool, oldest first.
func (m *Matchmaker) Waiting() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.waiting)
}

// Len is the number of live sessions.
func (m *Matchmaker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Wait blocks until every session stopped, which happens once the context
// given to New is done.
func (m *Matchmaker) Wait() {
	m.wg.Wait()
}

func (m *Matchmaker) spawn(opts session.Options) *session.Session {
	opts.ID = m.newID()
	opts.OnFinish = m.release
	s := session.New(opts, m.cfg)
	m.sessions[s.ID] = s
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.Run(m.ctx)
	}()
	return s
}

func (m *Matchmaker) release(s *session.Session, r *model.MatchResult) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.dropWaiting(s.ID)
	meta := s.Meta()
	for _, p := range []string{meta.Player1.PlayerID, meta.Player2.PlayerID} {
		if p != "" && m.byPlayer[p] == s.ID {
			delete(m.byPlayer, p)
		}
	}
	if s.OriginMatchID != "" && m.bracket[s.OriginMatchID] == s.ID {
		delete(m.bracket, s.OriginMatchID)
	}
	m.mu.Unlock()

	m.log.Debugf("session %s released (%s)", s.ID, meta.Status)
	if m.onFinish != nil {
		m.onFinish(s, r)
	}
}

func (m *Matchmaker) dropWaiting(id string) {
	m.waiting = slices.DeleteFunc(m.waiting, func(w string) bool { return w == id })
}

func ref(s *session.Session, role model.Role) model.SessionRef {
	return model.SessionRef{SessionID: s.ID, Role: role, Status: s.Status()}
}
