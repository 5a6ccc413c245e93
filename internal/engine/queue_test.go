package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string) Task {
	return Task{Name: name, Fn: func(context.Context) error { return nil }}
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	for _, name := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(named(name)))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Name)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestTaskQueue_WaitSignals(t *testing.T) {
	q := newTaskQueue()

	q.Enqueue(named("x"))
	q.Enqueue(named("y"))

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("enqueue did not signal")
	}

	q.Notify()
	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("notify did not signal")
	}
}

func TestTaskQueue_Close(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(named("before"))
	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(named("after")), "enqueue after close should return false")

	got, ok := q.TryDequeue()
	require.True(t, ok, "tasks queued before close stay available")
	assert.Equal(t, "before", got.Name)

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue should wake waiters")
	}
}

func TestTaskQueue_Len(t *testing.T) {
	q := newTaskQueue()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(named("1"))
	q.Enqueue(named("2"))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestTaskQueue_ConcurrentProducers(t *testing.T) {
	q := newTaskQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(named("t"))
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*perProducer, n)
}
