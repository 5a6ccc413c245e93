package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Loop is a realm's single-writer scheduler.
//
// Tasks run one at a time in FIFO order. After each task the loop reaches a
// checkpoint and runs the flush callbacks scheduled so far; a callback
// scheduled while a checkpoint is running waits for the next one.
//
// Thread-safety model:
//   - Submit(), ScheduleFlush(), Stop(): safe from any goroutine
//   - Run() and Drain(): exactly one caller at a time
type Loop struct {
	name    string
	logger  *slog.Logger
	queue   *taskQueue
	tracker *Tracker

	mu      sync.Mutex
	flushes []func(context.Context)

	tasksRun   atomic.Int64
	flushesRun atomic.Int64
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithName labels the loop in logs, typically with its realm.
func WithName(name string) LoopOption {
	return func(l *Loop) {
		l.name = name
	}
}

// WithLogger sets the loop's logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithTracker counts the loop's outstanding work in t. Loops sharing a
// tracker can be waited on together for quiescence.
func WithTracker(t *Tracker) LoopOption {
	return func(l *Loop) {
		l.tracker = t
	}
}

// NewLoop creates an idle loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		name:   "loop",
		logger: slog.Default(),
		queue:  newTaskQueue(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("loop", l.name)
	return l
}

// Name returns the loop's label.
func (l *Loop) Name() string { return l.name }

// Submit queues a task. Returns false once the loop has been stopped.
func (l *Loop) Submit(name string, fn func(ctx context.Context) error) bool {
	l.tracker.add(1)
	if !l.queue.Enqueue(Task{Name: name, Fn: fn}) {
		l.tracker.add(-1)
		return false
	}
	return true
}

// ScheduleFlush requests fn at the next checkpoint: after the running task
// finishes, or as soon as the loop is idle.
func (l *Loop) ScheduleFlush(fn func(context.Context)) {
	l.tracker.add(1)
	l.mu.Lock()
	l.flushes = append(l.flushes, fn)
	l.mu.Unlock()
	l.queue.Notify()
}

// Pending returns the number of queued tasks and scheduled flushes.
func (l *Loop) Pending() int {
	l.mu.Lock()
	n := len(l.flushes)
	l.mu.Unlock()
	return n + l.queue.Len()
}

// TasksRun returns how many tasks the loop has completed.
func (l *Loop) TasksRun() int64 { return l.tasksRun.Load() }

// FlushesRun returns how many flush callbacks the loop has completed.
func (l *Loop) FlushesRun() int64 { return l.flushesRun.Load() }

// Run processes tasks until ctx is cancelled or Stop is called.
//
// Task errors are logged and the loop continues: a failed write or a
// rejected sync message must not stop the realm.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting")

	for {
		if l.step(ctx) {
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel closes with the queue.
			if l.queue.Closed() && l.Pending() == 0 {
				l.logger.Debug("loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain runs queued tasks and checkpoints in the calling goroutine until
// none remain, and returns the number of tasks run. Work submitted from
// other loops during Drain is included. Drain must not overlap with Run.
func (l *Loop) Drain(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		ranTask, progressed := l.stepCounted(ctx)
		if !progressed {
			break
		}
		if ranTask {
			n++
		}
	}
	return n
}

// Stop closes the task queue. Run returns once the remaining work is done.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) step(ctx context.Context) bool {
	_, progressed := l.stepCounted(ctx)
	return progressed
}

// stepCounted runs one task followed by a checkpoint, or a lone checkpoint
// when no task is queued.
func (l *Loop) stepCounted(ctx context.Context) (ranTask, progressed bool) {
	if t, ok := l.queue.TryDequeue(); ok {
		l.runTask(ctx, t)
		l.checkpoint(ctx)
		return true, true
	}
	return false, l.checkpoint(ctx)
}

func (l *Loop) runTask(ctx context.Context, t Task) {
	defer l.tracker.add(-1)
	defer l.tasksRun.Add(1)

	if err := l.invoke(ctx, t); err != nil {
		l.logger.Warn("task failed", "task", t.Name, "error", err)
	}
}

// invoke runs a task, converting a panic into a *TaskError so one bad
// handler cannot take the realm down.
func (l *Loop) invoke(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{Code: ErrCodeTaskPanic, Task: t.Name, Message: fmt.Sprint(r)}
		}
	}()
	if err := t.Fn(ctx); err != nil {
		return &TaskError{Code: ErrCodeTaskFailed, Task: t.Name, Message: err.Error(), Err: err}
	}
	return nil
}

// checkpoint runs the flush callbacks scheduled before it started.
func (l *Loop) checkpoint(ctx context.Context) bool {
	l.mu.Lock()
	batch := l.flushes
	l.flushes = nil
	l.mu.Unlock()

	for _, fn := range batch {
		l.runFlush(ctx, fn)
	}
	return len(batch) > 0
}

func (l *Loop) runFlush(ctx context.Context, fn func(context.Context)) {
	defer l.tracker.add(-1)
	defer l.flushesRun.Add(1)
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("flush panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn(ctx)
}
