package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"pongarena/internal/game"
	"pongarena/internal/model"
	"pongarena/internal/protocol"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sendCh chan []byte

	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{sendCh: make(chan []byte, 4096)}
}

func (c *fakeConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	select {
	case c.sendCh <- b:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type frame struct {
	typ string
	raw []byte
}

// drain returns every frame queued so far.
func (c *fakeConn) drain() []frame {
	var out []frame
	for {
		select {
		case b := <-c.sendCh:
			typ, _ := protocol.DecodeType(b)
			out = append(out, frame{typ, b})
		default:
			return out
		}
	}
}

func types(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.typ
	}
	return out
}

func last(t *testing.T, frames []frame, typ string) []byte {
	t.Helper()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].typ == typ {
			return frames[i].raw
		}
	}
	t.Fatalf("no %s frame in %v", typ, types(frames))
	return nil
}

// waitFor reads from c until a frame of typ arrives.
func waitFor(t *testing.T, c *fakeConn, typ string, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case b := <-c.sendCh:
			if got, _ := protocol.DecodeType(b); got == typ {
				return b
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return nil
		}
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// testSession builds a session that is driven synchronously by the test.
func testSession(t *testing.T, clk *clock, cfg Config) (*Session, *[]*model.MatchResult) {
	t.Helper()
	cfg.Now = clk.now
	cfg.Seed = 42
	var results []*model.MatchResult
	s := New(Options{
		ID:       "s-1",
		OnFinish: func(_ *Session, r *model.MatchResult) { results = append(results, r) },
	}, cfg)
	return s, &results
}

func mustReserve(t *testing.T, s *Session, playerID, name string) model.Role {
	t.Helper()
	role, err := doReserve(s, playerID, name)
	require.NoError(t, err)
	return role
}

func doReserve(s *Session, playerID, name string) (model.Role, error) {
	reply := make(chan reserveResult, 1)
	s.handle(reserve{PlayerID: playerID, Name: name, Reply: reply})
	r := <-reply
	return r.Role, r.Err
}

func doAttach(s *Session, playerID string, c Conn) (model.Role, error) {
	reply := make(chan reserveResult, 1)
	s.handle(attach{PlayerID: playerID, Conn: c, Reply: reply})
	r := <-reply
	return r.Role, r.Err
}

// activeSession returns a session with both players attached and ready.
func activeSession(t *testing.T, clk *clock, cfg Config) (*Session, *fakeConn, *fakeConn, *[]*model.MatchResult) {
	t.Helper()
	s, results := testSession(t, clk, cfg)
	mustReserve(t, s, "alice", "Alice")
	mustReserve(t, s, "bob", "Bob")
	c1, c2 := newFakeConn(), newFakeConn()
	_, err := doAttach(s, "alice", c1)
	require.NoError(t, err)
	_, err = doAttach(s, "bob", c2)
	require.NoError(t, err)
	s.handle(ready{Role: model.RolePlayer1, Conn: c1})
	s.handle(ready{Role: model.RolePlayer2, Conn: c2})
	require.Equal(t, model.SessionActive, s.status)
	c1.drain()
	c2.drain()
	return s, c1, c2, results
}

// forceGoal sets the ball up to cross the loser's goal line on the next tick.
func forceGoal(s *Session, scorer model.Role) {
	tun := s.cfg.Tuning
	s.state.ServeTicks = 0
	if scorer == model.RolePlayer1 {
		s.state.Paddles[1] = 0
		s.state.Ball = game.Vec2{X: tun.Width - 1, Y: tun.Height - 20}
		s.state.Vel = game.Vec2{X: 20}
	} else {
		s.state.Paddles[0] = 0
		s.state.Ball = game.Vec2{X: 1, Y: tun.Height - 20}
		s.state.Vel = game.Vec2{X: -20}
	}
	s.tick()
}
