package session

import (
	"pongarena/internal/model"
	"pongarena/internal/protocol"
)

func (s *Session) sendTo(i int, m protocol.Message) {
	c := s.slots[i].conn
	if c == nil {
		return
	}
	b, err := protocol.Encode(m)
	if err != nil {
		s.log.Errorf("session %s: %v", s.ID, err)
		return
	}
	if err := c.Send(b); err != nil {
		s.log.Debugf("session %s: send %s to %s: %v", s.ID, m.MessageType(), model.RoleAt(i), err)
	}
}

// broadcast encodes m once and sends it to every attached connection.
func (s *Session) broadcast(m protocol.Message) {
	b, err := protocol.Encode(m)
	if err != nil {
		s.log.Errorf("session %s: %v", s.ID, err)
		return
	}
	for i := range s.slots {
		c := s.slots[i].conn
		if c == nil {
			continue
		}
		if err := c.Send(b); err != nil {
			s.log.Debugf("session %s: send %s to %s: %v", s.ID, m.MessageType(), model.RoleAt(i), err)
		}
	}
}

func (s *Session) broadcastSnapshot() {
	if s.status != model.SessionActive {
		return
	}
	s.broadcast(s.snapshot())
}

func (s *Session) snapshot() protocol.GameUpdate {
	s.seq++
	return protocol.GameUpdate{
		BallX:        s.state.Ball.X,
		BallY:        s.state.Ball.Y,
		Paddle1Y:     s.state.Paddles[0],
		Paddle2Y:     s.state.Paddles[1],
		Player1Score: s.state.Scores[0],
		Player2Score: s.state.Scores[1],
		Timestamp:    s.cfg.Now().UnixMilli(),
		Seq:          s.seq,
	}
}

func (s *Session) roster() protocol.PlayersReady {
	n := 0
	for i := range s.slots {
		if s.slots[i].conn != nil {
			n++
		}
	}
	return protocol.PlayersReady{
		PlayersConnected: n,
		Player1:          s.slots[0].name,
		Player2:          s.slots[1].name,
		Player1Ready:     s.slots[0].ready,
		Player2Ready:     s.slots[1].ready,
	}
}
