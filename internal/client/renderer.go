package client

import (
	"sync"
	"time"

	"pongarena/internal/protocol"
)

// Frame is what gets drawn: positions in canvas units plus scores.
type Frame struct {
	BallX        float64
	BallY        float64
	Paddle1Y     float64
	Paddle2Y     float64
	Player1Score int
	Player2Score int
}

type snapshot struct {
	update protocol.GameUpdate
	at     time.Time
}

// Renderer interpolates between the two most recent snapshots. It never
// runs physics and never draws past the newest snapshot.
type Renderer struct {
	mu   sync.Mutex
	prev *snapshot
	cur  *snapshot
	now  func() time.Time
}

// NewRenderer creates a renderer using the wall clock.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// Push records a snapshot as it arrives. Snapshots older than the newest
// one are dropped.
func (r *Renderer) Push(u protocol.GameUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur != nil && u.Seq != 0 && u.Seq <= r.cur.update.Seq {
		return
	}
	r.prev = r.cur
	r.cur = &snapshot{update: u, at: r.now()}
}

// Reset forgets all snapshots, e.g. when a new match starts.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prev, r.cur = nil, nil
}

// Frame returns the state to draw now. ok is false before the first
// snapshot.
func (r *Renderer) Frame() (f Frame, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return Frame{}, false
	}
	cur := r.cur.update
	if r.prev == nil {
		return frameOf(cur), true
	}
	prev := r.prev.update

	// a goal teleports the ball to the center; don't sweep it across
	if prev.Player1Score != cur.Player1Score || prev.Player2Score != cur.Player2Score {
		return frameOf(cur), true
	}

	alpha := 1.0
	if interval := r.cur.at.Sub(r.prev.at); interval > 0 {
		alpha = float64(r.now().Sub(r.cur.at)) / float64(interval)
	}
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}

	return Frame{
		BallX:        lerp(prev.BallX, cur.BallX, alpha),
		BallY:        lerp(prev.BallY, cur.BallY, alpha),
		Paddle1Y:     lerp(prev.Paddle1Y, cur.Paddle1Y, alpha),
		Paddle2Y:     lerp(prev.Paddle2Y, cur.Paddle2Y, alpha),
		Player1Score: cur.Player1Score,
		Player2Score: cur.Player2Score,
	}, true
}

// Motion returns the ball displacement between the two latest snapshots.
func (r *Renderer) Motion() (dx, dy float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prev == nil || r.cur == nil {
		return 0, 0, false
	}
	p, c := r.prev.update, r.cur.update
	if p.Player1Score != c.Player1Score || p.Player2Score != c.Player2Score {
		return 0, 0, false
	}
	return c.BallX - p.BallX, c.BallY - p.BallY, true
}

func frameOf(u protocol.GameUpdate) Frame {
	return Frame{
		BallX:        u.BallX,
		BallY:        u.BallY,
		Paddle1Y:     u.Paddle1Y,
		Paddle2Y:     u.Paddle2Y,
		Player1Score: u.Player1Score,
		Player2Score: u.Player2Score,
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
