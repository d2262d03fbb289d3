package session

import (
	"sync"

	"pongarena/internal/model"
)

// intentBox holds the latest intent for one player. Receive paths write it
// without going through the session inbox; the tick reads it.
type intentBox struct {
	mu sync.Mutex
	in model.Intent
}

func (b *intentBox) apply(d model.Direction, a model.MoveAction, seq uint64) model.Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.in = b.in.Apply(d, a, seq)
	return b.in
}

func (b *intentBox) load() model.Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.in
}

func (b *intentBox) reset() {
	b.mu.Lock()
	b.in = model.Intent{Direction: model.DirNone}
	b.mu.Unlock()
}
