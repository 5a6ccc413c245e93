package engine

import (
	"context"
	"sync"
)

// Task is a unit of work run by a Loop. Property writes, received sync
// messages and flushes all run as tasks, so they never overlap within one
// realm.
type Task struct {
	// Name labels the task in logs.
	Name string
	Fn   func(ctx context.Context) error
}

// taskQueue is a thread-safe FIFO queue for tasks.
//
// The queue is unbounded: a flush may submit any number of sync messages to
// the peer loop without blocking on it.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
	signal chan struct{} // buffered, size 1
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]Task, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a task to the back of the queue.
// Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.notifyLocked()
	return true
}

// Notify wakes a waiting Run loop without adding a task.
func (q *taskQueue) Notify() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.notifyLocked()
	}
}

func (q *taskQueue) notifyLocked() {
	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryDequeue removes the front task without blocking.
func (q *taskQueue) TryDequeue() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return Task{}, false
	}

	t := q.tasks[0]
	// Release the closure for GC.
	q.tasks[0] = Task{}
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// Wait returns a channel that signals when tasks may be available. It is
// closed when the queue closes.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Closed reports whether Close has been called.
func (q *taskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further tasks and wakes any waiter. Queued tasks remain
// available to TryDequeue.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
