package client

import (
	"sync"
	"time"

	"pongarena/internal/model"
	"pongarena/internal/protocol"
)

// Sender delivers a message to the server.
type Sender interface {
	Send(protocol.Message) error
}

// InputRelay turns local key state into paddle_move messages. A message is
// sent only when the held direction changes.
type InputRelay struct {
	mu          sync.Mutex
	out         Sender
	held        model.Direction
	seq         uint64
	autoRelease time.Duration
	timer       *time.Timer
	gen         uint64
	onError     func(error)
}

// NewInputRelay creates a relay. With autoRelease > 0 a pressed direction is
// released on its own unless Press is repeated within that window, for
// inputs that never report key-up.
func NewInputRelay(out Sender, autoRelease time.Duration) *InputRelay {
	return &InputRelay{
		out:         out,
		held:        model.DirNone,
		autoRelease: autoRelease,
		// seeded from the clock so a restarted client is not taken for stale
		seq:     uint64(time.Now().UnixNano()),
		onError: func(error) {},
	}
}

// OnError observes send failures, which are otherwise dropped.
func (r *InputRelay) OnError(fn func(error)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

// Press starts moving in d, or extends the auto-release window if d is
// already held.
func (r *InputRelay) Press(d model.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(d)
	r.arm(d)
}

// Release stops moving in d if d is held.
func (r *InputRelay) Release(d model.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held != d {
		return
	}
	r.set(model.DirNone)
}

// Hold makes d the held direction; DirNone releases.
func (r *InputRelay) Hold(d model.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(d)
}

// Held returns the direction currently held.
func (r *InputRelay) Held() model.Direction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held
}

// Reset forgets the held direction without telling the server, as after a
// match (re)start where the server cleared intents itself.
func (r *InputRelay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimer()
	r.held = model.DirNone
}

// Stop releases any held direction and cancels the auto-release timer.
func (r *InputRelay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimer()
	r.set(model.DirNone)
}

func (r *InputRelay) set(d model.Direction) {
	if d == r.held {
		return
	}
	if r.held != model.DirNone {
		r.emit(r.held, model.MoveStop)
	}
	r.held = d
	if d != model.DirNone {
		r.emit(d, model.MoveStart)
	} else {
		r.stopTimer()
	}
}

func (r *InputRelay) emit(d model.Direction, a model.MoveAction) {
	r.seq++
	err := r.out.Send(protocol.PaddleMove{Direction: string(d), Action: string(a), Seq: r.seq})
	if err != nil {
		r.onError(err)
	}
}

func (r *InputRelay) arm(d model.Direction) {
	if r.autoRelease <= 0 {
		return
	}
	r.stopTimer()
	gen := r.gen
	r.timer = time.AfterFunc(r.autoRelease, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gen == gen && r.held == d {
			r.timer = nil
			r.set(model.DirNone)
		}
	})
}

func (r *InputRelay) stopTimer() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
