// Package session provides an in-process session channel between the two
// realms of a process.
//
// Messages are encoded with ir.EncodeMessage on send and decoded by the
// receiving realm, so everything crossing the pair has survived the wire
// format. Delivery is FIFO per endpoint.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/duet/internal/ir"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("session closed")

// Receiver applies encoded sync messages. realm.Realm implements it.
type Receiver interface {
	ReceiveBytes(ctx context.Context, data []byte) error
}

// Submitter runs delivery tasks. engine.Loop implements it.
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

type envelope struct {
	instance string
	data     []byte
}

// Endpoint is one end of a Pair. Send delivers to the other end.
//
// Thread-safety: Send, Cancel, Close and Deliver are safe from any
// goroutine. Bind must be called before messages arrive.
type Endpoint struct {
	name   string
	peer   *Endpoint
	logger *slog.Logger

	mu       sync.Mutex
	inbox    []envelope
	loop     Submitter
	receiver Receiver
	closed   bool

	sent      atomic.Int64
	delivered atomic.Int64
	canceled  atomic.Int64
}

// Option configures both endpoints of a pair.
type Option func(*Endpoint)

// WithLogger sets the endpoints' logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Endpoint) {
		e.logger = logger
	}
}

// Pair returns two linked endpoints, one per realm.
func Pair(opts ...Option) (a, b *Endpoint) {
	a = &Endpoint{name: string(ir.RealmA), logger: slog.Default()}
	b = &Endpoint{name: string(ir.RealmB), logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
		opt(b)
	}
	a.logger = a.logger.With("endpoint", a.name)
	b.logger = b.logger.With("endpoint", b.name)
	a.peer, b.peer = b, a
	return a, b
}

// Bind hands incoming messages to r. With a non-nil loop each message is
// delivered as a task on that loop; with a nil loop messages wait for
// Deliver.
func (e *Endpoint) Bind(loop Submitter, r Receiver) {
	e.mu.Lock()
	e.loop, e.receiver = loop, r
	e.mu.Unlock()
}

// Send encodes msg and queues it at the peer endpoint.
func (e *Endpoint) Send(_ context.Context, msg ir.Message) error {
	data, err := ir.EncodeMessage(msg)
	if err != nil {
		return err
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := e.peer.enqueue(envelope{instance: msg.InstanceID, data: data}); err != nil {
		return err
	}
	e.sent.Add(1)
	return nil
}

func (e *Endpoint) enqueue(env envelope) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.inbox = append(e.inbox, env)
	loop := e.loop
	e.mu.Unlock()

	if loop != nil && !loop.Submit("session.receive", e.deliverOne) {
		return fmt.Errorf("endpoint %s: loop stopped", e.name)
	}
	return nil
}

// deliverOne hands the oldest queued message to the receiver. Cancel may
// have emptied the inbox since the task was submitted.
func (e *Endpoint) deliverOne(ctx context.Context) error {
	e.mu.Lock()
	if len(e.inbox) == 0 {
		e.mu.Unlock()
		return nil
	}
	env := e.inbox[0]
	e.inbox = e.inbox[1:]
	r := e.receiver
	e.mu.Unlock()

	if r == nil {
		return fmt.Errorf("endpoint %s: no receiver bound", e.name)
	}
	e.delivered.Add(1)
	return r.ReceiveBytes(ctx, env.data)
}

// Deliver hands every queued message to the receiver in order, including
// messages queued during delivery, and returns how many were delivered.
// Receiver errors are logged.
func (e *Endpoint) Deliver(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		e.mu.Lock()
		empty := len(e.inbox) == 0
		e.mu.Unlock()
		if empty {
			break
		}
		if err := e.deliverOne(ctx); err != nil {
			e.logger.Warn("delivery failed", "error", err)
		}
		n++
	}
	return n
}

// Cancel drops undelivered messages addressed to an instance.
func (e *Endpoint) Cancel(instanceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.inbox[:0]
	for _, env := range e.inbox {
		if env.instance == instanceID {
			e.canceled.Add(1)
			continue
		}
		kept = append(kept, env)
	}
	e.inbox = kept
}

// Close stops both directions of the endpoint. Queued messages are kept
// for Deliver.
func (e *Endpoint) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// Pending returns the number of undelivered messages.
func (e *Endpoint) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inbox)
}

// Stats reports how many messages this endpoint sent, delivered and
// dropped by Cancel.
func (e *Endpoint) Stats() (sent, delivered, canceled int64) {
	return e.sent.Load(), e.delivered.Load(), e.canceled.Load()
}
