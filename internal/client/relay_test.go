package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pongarena/internal/model"
	"pongarena/internal/protocol"
)

type recorder struct {
	mu   sync.Mutex
	sent []protocol.PaddleMove
}

func (r *recorder) Send(m protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pm, ok := m.(protocol.PaddleMove); ok {
		r.sent = append(r.sent, pm)
	}
	return nil
}

func (r *recorder) moves() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.Direction + ":" + m.Action
	}
	return out
}

func TestInputRelay_SendsOnlyTransitions(t *testing.T) {
	rec := &recorder{}
	r := NewInputRelay(rec, 0)

	r.Press(model.DirUp)
	r.Press(model.DirUp)
	r.Release(model.DirDown)
	r.Press(model.DirDown)
	r.Release(model.DirDown)
	r.Release(model.DirDown)

	assert.Equal(t, []string{"up:start", "up:stop", "down:start", "down:stop"}, rec.moves())
	assert.Equal(t, model.DirNone, r.Held())
}

func TestInputRelay_SeqIncreases(t *testing.T) {
	rec := &recorder{}
	r := NewInputRelay(rec, 0)
	r.Hold(model.DirUp)
	r.Hold(model.DirDown)
	r.Hold(model.DirNone)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := 1; i < len(rec.sent); i++ {
		assert.Greater(t, rec.sent[i].Seq, rec.sent[i-1].Seq)
	}
}

func TestInputRelay_AutoRelease(t *testing.T) {
	rec := &recorder{}
	r := NewInputRelay(rec, 100*time.Millisecond)

	r.Press(model.DirDown)
	// repeats within the window keep the key held
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		r.Press(model.DirDown)
	}
	assert.Equal(t, model.DirDown, r.Held())
	assert.Equal(t, []string{"down:start"}, rec.moves())

	assert.Eventually(t, func() bool { return r.Held() == model.DirNone }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"down:start", "down:stop"}, rec.moves())
}

func TestInputRelay_ResetIsSilent(t *testing.T) {
	rec := &recorder{}
	r := NewInputRelay(rec, 0)
	r.Press(model.DirUp)
	r.Reset()
	r.Stop()
	assert.Equal(t, []string{"up:start"}, rec.moves())
}
