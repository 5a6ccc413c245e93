package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLoop(opts ...LoopOption) *Loop {
	opts = append([]LoopOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewLoop(opts...)
}

func TestLoop_DrainRunsTasksInOrder(t *testing.T) {
	l := quietLoop()
	var order []string

	for _, name := range []string{"a", "b", "c"} {
		require.True(t, l.Submit(name, func(context.Context) error {
			order = append(order, name)
			return nil
		}))
	}

	assert.Equal(t, 3, l.Pending())
	assert.Equal(t, 3, l.Drain(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, int64(3), l.TasksRun())
}

func TestLoop_FlushRunsAfterCurrentTask(t *testing.T) {
	l := quietLoop()
	var order []string

	l.Submit("write", func(context.Context) error {
		l.ScheduleFlush(func(context.Context) { order = append(order, "flush") })
		order = append(order, "write")
		return nil
	})
	l.Submit("next", func(context.Context) error {
		order = append(order, "next")
		return nil
	})

	l.Drain(context.Background())
	assert.Equal(t, []string{"write", "flush", "next"}, order)
	assert.Equal(t, int64(1), l.FlushesRun())
}

func TestLoop_FlushScheduledDuringFlushWaits(t *testing.T) {
	l := quietLoop()
	var order []string

	l.ScheduleFlush(func(context.Context) {
		order = append(order, "first")
		l.ScheduleFlush(func(context.Context) { order = append(order, "second") })
	})

	assert.True(t, l.checkpoint(context.Background()))
	assert.Equal(t, []string{"first"}, order, "a flush scheduled during a checkpoint waits")

	assert.True(t, l.checkpoint(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.False(t, l.checkpoint(context.Background()))
}

func TestLoop_DrainRunsIdleFlush(t *testing.T) {
	l := quietLoop()
	ran := false
	l.ScheduleFlush(func(context.Context) { ran = true })

	assert.Equal(t, 0, l.Drain(context.Background()), "no tasks, only a checkpoint")
	assert.True(t, ran)
}

func TestLoop_TaskErrorsDoNotStopLoop(t *testing.T) {
	l := quietLoop()
	ran := false

	l.Submit("fails", func(context.Context) error { return errors.New("boom") })
	l.Submit("panics", func(context.Context) error { panic("bad handler") })
	l.Submit("ok", func(context.Context) error {
		ran = true
		return nil
	})

	assert.Equal(t, 3, l.Drain(context.Background()))
	assert.True(t, ran)
}

func TestLoop_InvokeWrapsErrors(t *testing.T) {
	l := quietLoop()
	cause := errors.New("boom")

	err := l.invoke(context.Background(), Task{Name: "t", Fn: func(context.Context) error { return cause }})
	var te *TaskError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrCodeTaskFailed, te.Code)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsTaskPanic(err))

	err = l.invoke(context.Background(), Task{Name: "p", Fn: func(context.Context) error { panic("x") }})
	assert.True(t, IsTaskPanic(err))
	assert.Contains(t, err.Error(), "task=p")
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := quietLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	processed := make(chan struct{})
	l.Submit("signal", func(context.Context) error {
		close(processed)
		return nil
	})

	select {
	case <-processed:
	case <-time.After(time.Second):
		t.Fatal("task was not processed")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, l.Submit("late", func(context.Context) error { return nil }))
}

func TestLoop_StopFinishesQueuedWork(t *testing.T) {
	l := quietLoop()
	var mu sync.Mutex
	count := 0
	for i := 0; i < 5; i++ {
		l.Submit("inc", func(context.Context) error {
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		})
	}
	l.Stop()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 5, count)
}

func TestTracker_WaitsForBothLoops(t *testing.T) {
	tracker := NewTracker()
	a := quietLoop(WithName("a"), WithTracker(tracker))
	b := quietLoop(WithName("b"), WithTracker(tracker))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = a.Run(ctx) }()
	go func() { defer wg.Done(); _ = b.Run(ctx) }()

	// A ping-pong of ten hops between the loops.
	var mu sync.Mutex
	hops := 0
	var bounce func(from, to *Loop, left int) func(context.Context) error
	bounce = func(from, to *Loop, left int) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			hops++
			mu.Unlock()
			if left > 0 {
				to.Submit("bounce", bounce(to, from, left-1))
			}
			return nil
		}
	}
	a.Submit("bounce", bounce(a, b, 9))

	waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
	defer waitCancel()
	require.NoError(t, tracker.Wait(waitCtx))

	mu.Lock()
	assert.Equal(t, 10, hops)
	mu.Unlock()
	assert.Equal(t, 0, tracker.Outstanding())

	cancel()
	wg.Wait()
}

func TestTracker_Nil(t *testing.T) {
	var tr *Tracker
	tr.add(1)
	assert.Equal(t, 0, tr.Outstanding())
	assert.NoError(t, tr.Wait(context.Background()))
}
