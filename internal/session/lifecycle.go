package session

import (
	"slices"
	"time"

	"pongarena/internal/game"
	"pongarena/internal/model"
	"pongarena/internal/protocol"
)

func (s *Session) handle(cmd any) {
	switch c := cmd.(type) {
	case reserve:
		role, err := s.reserve(c.PlayerID, c.Name)
		s.publish()
		c.Reply <- reserveResult{Role: role, Err: err}
	case attach:
		role, err := s.attach(c.PlayerID, c.Conn)
		s.publish()
		c.Reply <- reserveResult{Role: role, Err: err}
	case ready:
		s.ready(c.Role, c.Conn)
	case leave:
		if sl := s.slotFor(c.Role, c.Conn); sl != nil {
			s.log.Debugf("session %s: %s left (%s)", s.ID, c.Role, c.Reason)
			s.depart(c.Role)
		}
	case lost:
		s.lost(c.Role, c.Conn)
	default:
		s.log.Warnf("session %s: unknown command %T", s.ID, cmd)
	}
	s.publish()
}

// slotFor returns the slot for role if conn is its current connection. A
// nil conn matches regardless, so callers without a connection can act.
func (s *Session) slotFor(role model.Role, conn Conn) *slot {
	i := role.Index()
	if i < 0 || !s.slots[i].taken() {
		return nil
	}
	sl := &s.slots[i]
	if conn != nil && sl.conn != conn {
		return nil
	}
	return sl
}

func (s *Session) roleOf(playerID string) model.Role {
	for i := range s.slots {
		if s.slots[i].playerID == playerID {
			return model.RoleAt(i)
		}
	}
	return model.RoleNone
}

func (s *Session) full() bool {
	return s.slots[0].taken() && s.slots[1].taken()
}

func (s *Session) reserve(playerID, name string) (model.Role, error) {
	if role := s.roleOf(playerID); role != model.RoleNone {
		if name != "" {
			s.slots[role.Index()].name = name
		}
		return role, nil
	}
	if len(s.invited) > 0 && !slices.Contains(s.invited, playerID) {
		return model.RoleNone, model.ErrNotParticipant
	}
	if s.status != model.SessionWaiting || s.full() {
		return model.RoleNone, model.ErrSessionFull
	}

	i := 0
	if s.slots[0].taken() {
		i = 1
	}
	s.slots[i] = slot{playerID: playerID, name: name}
	role := model.RoleAt(i)
	s.log.Infof("session %s: %s reserved %s", s.ID, playerID, role)

	if s.full() {
		s.status = model.SessionReadyCheck
		for i := range s.slots {
			s.sendTo(i, protocol.AssignRole{Role: model.RoleAt(i), CanStartGame: true})
		}
		s.broadcast(s.roster())
	}
	return role, nil
}

func (s *Session) attach(playerID string, conn Conn) (model.Role, error) {
	role := s.roleOf(playerID)
	if role == model.RoleNone {
		if s.full() {
			return model.RoleNone, model.ErrSessionFull
		}
		return model.RoleNone, model.ErrNotParticipant
	}
	sl := &s.slots[role.Index()]
	if sl.conn != nil && sl.conn != conn {
		s.log.Debugf("session %s: %s superseded previous connection", s.ID, role)
		_ = sl.conn.Close()
	}
	resumed := !sl.lostAt.IsZero()
	sl.conn = conn
	sl.lostAt = time.Time{}

	s.sendTo(role.Index(), protocol.AssignRole{Role: role, CanStartGame: s.full()})
	switch s.status {
	case model.SessionWaiting:
		s.sendTo(role.Index(), protocol.WaitingForOpponent{Message: "Waiting for an opponent to join."})
	case model.SessionReadyCheck:
		s.broadcast(s.roster())
	case model.SessionActive:
		s.sendTo(role.Index(), protocol.GameStart{Player1Name: s.slots[0].name, Player2Name: s.slots[1].name})
		s.sendTo(role.Index(), s.snapshot())
		if resumed {
			s.log.Infof("session %s: %s reconnected, resuming", s.ID, role)
		}
	}
	return role, nil
}

func (s *Session) ready(role model.Role, conn Conn) {
	sl := s.slotFor(role, conn)
	if sl == nil {
		return
	}
	if s.status != model.SessionReadyCheck {
		s.log.Debugf("session %s: ready from %s rejected in %s", s.ID, role, s.status)
		s.sendTo(role.Index(), protocol.Error{Message: "ready signal outside ready check"})
		return
	}
	if sl.ready {
		return
	}
	sl.ready = true
	s.broadcast(s.roster())
	if s.slots[0].ready && s.slots[1].ready {
		s.start()
	}
}

func (s *Session) start() {
	s.status = model.SessionActive
	s.startedAt = s.cfg.Now()
	for i := range s.intents {
		s.intents[i].reset()
	}
	s.state.Reset(s.cfg.Tuning, s.rng)
	s.log.Infof("session %s: match started", s.ID)

	s.broadcast(protocol.AllPlayersReady{})
	s.broadcast(protocol.GameStart{Player1Name: s.slots[0].name, Player2Name: s.slots[1].name})
	s.broadcast(s.snapshot())
}

func (s *Session) lost(role model.Role, conn Conn) {
	sl := s.slotFor(role, conn)
	if sl == nil || sl.conn == nil {
		return
	}
	sl.conn = nil
	// a key held on the dropped socket is never released
	s.intents[role.Index()].reset()
	if s.cfg.ReconnectGrace <= 0 {
		s.log.Infof("session %s: %s connection lost", s.ID, role)
		s.depart(role)
		return
	}
	sl.lostAt = s.cfg.Now()
	s.log.Infof("session %s: %s connection lost, holding slot for %v", s.ID, role, s.cfg.ReconnectGrace)
	if s.status == model.SessionReadyCheck {
		s.broadcast(s.roster())
	}
}

// depart applies a player leaving in the current status.
func (s *Session) depart(role model.Role) {
	switch s.status {
	case model.SessionActive:
		s.abandon(role)
	case model.SessionWaiting, model.SessionReadyCheck:
		s.discard(role)
	}
}

// discard ends a session that never started. Nothing is reported.
func (s *Session) discard(by model.Role) {
	s.status = model.SessionAbandoned
	if other := by.Other().Index(); other >= 0 && s.slots[other].conn != nil {
		s.sendTo(other, protocol.GameAbandoned{
			AbandonedBy: by,
			Message:     "Your opponent left before the match started.",
		})
	}
	s.log.Infof("session %s: discarded before start", s.ID)
	s.teardown()
}

// abandon awards the forfeit to the player who stayed.
func (s *Session) abandon(by model.Role) {
	s.status = model.SessionAbandoned
	winner := by.Other()
	s.state.Scores = [2]int{}
	s.state.Scores[winner.Index()] = s.cfg.ForfeitScore
	s.state.Winner = winner
	s.state.Over = true

	for i := range s.slots {
		msg := protocol.GameAbandoned{
			Player1Score: s.state.Scores[0],
			Player2Score: s.state.Scores[1],
			AbandonedBy:  by,
			Winner:       winner,
			Message:      "Your opponent left the match. You win by forfeit.",
		}
		if model.RoleAt(i) == by {
			msg.Message = "You forfeited the match."
		}
		s.sendTo(i, msg)
	}
	s.log.Infof("session %s: abandoned by %s, %s wins %d-%d", s.ID, by, winner, s.state.Scores[0], s.state.Scores[1])
	s.finish(by)
}

func (s *Session) end() {
	s.status = model.SessionEnded
	s.broadcast(s.snapshot())
	s.broadcast(protocol.GameEnd{
		Player1Score: s.state.Scores[0],
		Player2Score: s.state.Scores[1],
		Winner:       s.state.Winner,
	})
	s.log.Infof("session %s: %s wins %d-%d", s.ID, s.state.Winner, s.state.Scores[0], s.state.Scores[1])
	s.finish(model.RoleNone)
}

func (s *Session) finish(abandonedBy model.Role) {
	s.result = &model.MatchResult{
		SessionID:     s.ID,
		OriginMatchID: s.OriginMatchID,
		Kind:          s.Kind,
		Player1:       model.SlotInfo{PlayerID: s.slots[0].playerID, Name: s.slots[0].name},
		Player2:       model.SlotInfo{PlayerID: s.slots[1].playerID, Name: s.slots[1].name},
		Player1Score:  s.state.Scores[0],
		Player2Score:  s.state.Scores[1],
		Winner:        s.state.Winner,
		AbandonedBy:   abandonedBy,
		StartedAt:     s.startedAt,
		EndedAt:       s.cfg.Now(),
	}
	s.teardown()
}

// shutdown stops a session because the server is going away.
func (s *Session) shutdown() {
	if s.status.Terminal() {
		return
	}
	s.status = model.SessionAbandoned
	s.broadcast(protocol.Error{Message: "server shutting down"})
	s.teardown()
}

// teardown closes every connection. It runs on the session goroutine after
// the terminal status is set, so no tick or broadcast follows it.
func (s *Session) teardown() {
	for i := range s.slots {
		if c := s.slots[i].conn; c != nil {
			_ = c.Close()
			s.slots[i].conn = nil
		}
	}
	s.publish()
}

func (s *Session) tick() {
	now := s.cfg.Now()
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.lostAt.IsZero() && now.Sub(sl.lostAt) >= s.cfg.ReconnectGrace {
			sl.lostAt = time.Time{}
			s.log.Infof("session %s: %s did not reconnect", s.ID, model.RoleAt(i))
			s.depart(model.RoleAt(i))
			s.publish()
			return
		}
	}

	if s.status == model.SessionWaiting && s.cfg.WaitingTimeout > 0 && now.Sub(s.createdAt) >= s.cfg.WaitingTimeout {
		s.broadcast(protocol.Error{Message: "no opponent found"})
		s.status = model.SessionAbandoned
		s.log.Infof("session %s: waiting timed out", s.ID)
		s.teardown()
		return
	}

	if s.status != model.SessionActive || !s.connected() {
		return
	}
	ev := game.Step(&s.state, s.cfg.Tuning, [2]model.Direction{
		s.intents[0].load().Direction,
		s.intents[1].load().Direction,
	}, s.rng)
	if ev.Scored != model.RoleNone {
		s.log.Debugf("session %s: %s scored (%d-%d)", s.ID, ev.Scored, s.state.Scores[0], s.state.Scores[1])
		s.publish()
	}
	if ev.Ended {
		s.end()
	}
}

// connected reports whether both players currently hold a connection.
// Simulation pauses otherwise.
func (s *Session) connected() bool {
	return s.slots[0].conn != nil && s.slots[1].conn != nil
}
