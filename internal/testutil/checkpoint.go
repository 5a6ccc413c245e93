package testutil

import (
	"context"
	"sync"
)

// ManualCheckpoint collects flush callbacks until the test runs them.
//
// It implements realm.Checkpoint for tests that step a realm by hand
// instead of through an engine.Loop.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualCheckpoint struct {
	mu      sync.Mutex
	pending []func(context.Context)
	runs    int
}

// NewManualCheckpoint creates a checkpoint with nothing scheduled.
func NewManualCheckpoint() *ManualCheckpoint {
	return &ManualCheckpoint{}
}

// ScheduleFlush queues fn for the next Run.
func (c *ManualCheckpoint) ScheduleFlush(fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, fn)
}

// Pending returns the number of queued callbacks.
func (c *ManualCheckpoint) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Runs returns how many callbacks have run.
func (c *ManualCheckpoint) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

// Run executes the callbacks queued before the call and returns how many
// ran. Callbacks scheduled while running wait for the next Run.
func (c *ManualCheckpoint) Run(ctx context.Context) int {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, fn := range batch {
		fn(ctx)
	}

	c.mu.Lock()
	c.runs += len(batch)
	c.mu.Unlock()
	return len(batch)
}
