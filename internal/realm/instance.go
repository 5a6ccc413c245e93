package realm

import (
	"context"
	"fmt"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
)

// Instance is one realm's copy of a dual-realm object. It implements
// model.Object for handlers.
type Instance struct {
	id       string
	realm    *Realm
	class    *model.Class
	manifest *model.Manifest
	unit     *model.Unit

	values map[string]ir.IRValue

	// Payloads queued since the last flush, keyed by event name, with
	// event names in first-emit order.
	pending      map[string]ir.IRArray
	pendingOrder []string

	// Shared event payloads to send to the peer at the next flush.
	outbound      map[string]ir.IRArray
	outboundOrder []string

	subs     map[string][]*subscription
	dirty    bool
	disposed bool
}

type subscription struct {
	fn model.Handler
}

var _ model.Object = (*Instance)(nil)

// ID returns the instance ID shared by both realms.
func (i *Instance) ID() string { return i.id }

// Realm returns the realm this copy lives in.
func (i *Instance) Realm() ir.Realm { return i.realm.realm }

// Class returns the instance's class.
func (i *Instance) Class() *model.Class { return i.class }

// Disposed reports whether Dispose has been called.
func (i *Instance) Disposed() bool { return i.disposed }

// Get returns a property's stored value.
func (i *Instance) Get(name string) (ir.IRValue, bool) {
	v, ok := i.values[name]
	return v, ok
}

// Values returns a copy of every stored value.
func (i *Instance) Values() ir.IRObject {
	out := make(ir.IRObject, len(i.values))
	for k, v := range i.values {
		out[k] = v
	}
	return out
}

// Set writes a property. The validator always runs; a changed result
// queues a change event and, for shared properties, syncs to the peer.
func (i *Instance) Set(ctx context.Context, name string, value ir.IRValue) error {
	if i.disposed {
		return fmt.Errorf("set %s.%s: %w", i.id, name, ErrDisposed)
	}
	prop, ok := i.manifest.Property(name)
	if !ok {
		return fmt.Errorf("set %s.%s in realm %s: %w", i.id, name, i.realm.realm, ErrUnknownProperty)
	}

	stored, changed, err := i.apply(name, value)
	if err != nil {
		return err
	}
	if !changed || prop.Scope != ir.ScopeShared {
		return nil
	}
	return i.realm.send(ctx, ir.Message{
		Kind:       ir.KindPropertySet,
		InstanceID: i.id,
		Name:       name,
		Value:      stored,
	})
}

// Emit queues a payload for the next flush. Payloads of shared events are
// also sent to the peer at that flush. A nil payload is an empty object.
func (i *Instance) Emit(name string, payload ir.IRValue) error {
	if i.disposed {
		return fmt.Errorf("emit %s.%s: %w", i.id, name, ErrDisposed)
	}
	ev, ok := i.manifest.Event(name)
	if !ok {
		return fmt.Errorf("emit %s.%s in realm %s: %w", i.id, name, i.realm.realm, ErrUnknownEvent)
	}
	if ev.Property != "" {
		return fmt.Errorf("emit %s.%s: %w", i.id, name, ErrChangeEvent)
	}
	if payload == nil {
		payload = ir.IRObject{}
	}
	payload, err := ir.Normalize(payload)
	if err != nil {
		return fmt.Errorf("emit %s.%s: %w", i.id, name, err)
	}

	i.enqueue(name, payload)
	if ev.Shared() {
		if _, ok := i.outbound[name]; !ok {
			i.outboundOrder = append(i.outboundOrder, name)
		}
		i.outbound[name] = append(i.outbound[name], payload)
	}
	return nil
}

// Subscribe adds a runtime handler for an event visible in this realm,
// including change events. Subscribers run after the class handlers.
func (i *Instance) Subscribe(event string, fn model.Handler) (unsubscribe func(), err error) {
	if _, ok := i.manifest.Event(event); !ok {
		return nil, fmt.Errorf("subscribe %s.%s in realm %s: %w", i.id, event, i.realm.realm, ErrUnknownEvent)
	}
	sub := &subscription{fn: fn}
	i.subs[event] = append(i.subs[event], sub)
	return func() {
		subs := i.subs[event]
		for k, s := range subs {
			if s == sub {
				i.subs[event] = append(subs[:k:k], subs[k+1:]...)
				return
			}
		}
	}, nil
}

// Dispose removes the instance from its realm. Queued events and
// undelivered outbound batches are dropped. The peer copy is unaffected.
func (i *Instance) Dispose() {
	if i.disposed {
		return
	}
	i.disposed = true
	i.pending, i.pendingOrder = nil, nil
	i.outbound, i.outboundOrder = nil, nil
	i.realm.dispose(i)
}

// apply validates and stores a value. A change queues the property's
// change event with {old, new}.
func (i *Instance) apply(name string, value ir.IRValue) (stored ir.IRValue, changed bool, err error) {
	old := i.values[name]
	stored, err = i.validate(name, old, value)
	if err != nil {
		i.realm.metrics.RecordValidationFailure(i.realm.realm)
		return nil, false, err
	}
	i.values[name] = stored
	if ir.Equal(old, stored) {
		return stored, false, nil
	}
	i.enqueue(ir.ChangedEvent(name), ir.IRObject{"old": old, "new": stored})
	return stored, true, nil
}

func (i *Instance) validate(name string, current, proposed ir.IRValue) (ir.IRValue, error) {
	fail := func(err error) error {
		return &ValidationError{Instance: i.id, Property: name, Realm: i.realm.realm, Value: proposed, Err: err}
	}
	if isNull(proposed) {
		return nil, fail(errNullValue)
	}
	in, err := ir.Normalize(proposed)
	if err != nil {
		return nil, fail(err)
	}
	out := in
	if v, ok := i.unit.Validator(name); ok && v != nil {
		if out, err = v(current, in); err != nil {
			return nil, fail(err)
		}
	}
	if isNull(out) {
		return nil, fail(errNullValue)
	}
	// Validators may build new strings; store what the wire will carry.
	if out, err = ir.Normalize(out); err != nil {
		return nil, fail(err)
	}
	return out, nil
}

func (i *Instance) enqueue(event string, payload ir.IRValue) {
	if _, ok := i.pending[event]; !ok {
		i.pendingOrder = append(i.pendingOrder, event)
	}
	i.pending[event] = append(i.pending[event], payload)
	i.realm.markDirty(i)
}

func isNull(v ir.IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(ir.IRNull)
	return ok
}
