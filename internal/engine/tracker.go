package engine

import (
	"context"
	"sync"
)

// Tracker counts outstanding work across loops. A task that sends to a peer
// loop increments the tracker through the peer's Submit before its own
// count is released, so a zero count means every loop sharing the tracker
// is quiescent.
//
// A nil *Tracker is valid and counts nothing.
type Tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

// NewTracker creates a tracker with no outstanding work.
func NewTracker() *Tracker {
	return &Tracker{idle: make(chan struct{})}
}

func (t *Tracker) add(d int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n += d
	if t.n == 0 {
		close(t.idle)
		t.idle = make(chan struct{})
	}
}

// Outstanding returns the current count.
func (t *Tracker) Outstanding() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Wait blocks until the count reaches zero or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	ch := t.idle
	t.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
