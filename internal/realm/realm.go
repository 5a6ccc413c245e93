package realm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/duet/internal/engine"
	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/metrics"
	"github.com/roach88/duet/internal/model"
)

// Channel carries sync messages to the peer realm. Delivery must be
// reliable and FIFO per instance.
type Channel interface {
	Send(ctx context.Context, msg ir.Message) error
}

// Canceler is implemented by channels that can drop undelivered messages
// addressed to a disposed instance.
type Canceler interface {
	Cancel(instanceID string)
}

// Checkpoint runs flush callbacks once the current unit of work is done.
// engine.Loop implements it.
type Checkpoint interface {
	ScheduleFlush(fn func(context.Context))
}

// Realm is one execution context's side of every dual-realm instance.
type Realm struct {
	realm ir.Realm
	ch    Channel
	cp    Checkpoint

	logger     *slog.Logger
	journal    Journal
	metrics    *metrics.Collector
	hopWarning int64
	ids        engine.IDGenerator
	clock      *engine.Clock

	instances map[string]*Instance

	// Instances with queued events, in the order they were first queued.
	dirty          []*Instance
	flushScheduled bool
}

// New creates a realm sending sync messages on ch and flushing events at
// the checkpoints of cp.
func New(realm ir.Realm, ch Channel, cp Checkpoint, opts ...Option) (*Realm, error) {
	if !realm.Valid() {
		return nil, fmt.Errorf("invalid realm %q", realm)
	}
	if ch == nil || cp == nil {
		return nil, fmt.Errorf("realm %s: channel and checkpoint are required", realm)
	}
	r := &Realm{
		realm:      realm,
		ch:         ch,
		cp:         cp,
		logger:     slog.Default(),
		hopWarning: DefaultHopWarning,
		ids:        engine.UUIDv7Generator{},
		clock:      engine.NewClock(),
		instances:  make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("realm", string(realm))
	return r, nil
}

// Realm returns which realm this is.
func (r *Realm) Realm() ir.Realm { return r.realm }

// Instantiate creates the realm's side of an instance of class. An empty id
// gets a generated one; the twin in the peer realm must use the same id.
//
// Every visible property is seeded with validator(zero, default). Seeding
// sends nothing and emits no change events.
func (r *Realm) Instantiate(class *model.Class, id string) (*Instance, error) {
	if id == "" {
		id = r.ids.Generate()
	}
	if _, ok := r.instances[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateInstance, id)
	}

	inst := &Instance{
		id:       id,
		realm:    r,
		class:    class,
		manifest: class.Manifest(r.realm),
		unit:     class.Unit(r.realm),
		values:   make(map[string]ir.IRValue),
		pending:  make(map[string]ir.IRArray),
		outbound: make(map[string]ir.IRArray),
		subs:     make(map[string][]*subscription),
	}
	for _, name := range inst.manifest.Properties() {
		prop, _ := inst.manifest.Property(name)
		value, err := inst.validate(name, ir.ZeroOf(prop.Default), prop.Default)
		if err != nil {
			return nil, fmt.Errorf("seed %s.%s: %w", class.Name(), name, err)
		}
		inst.values[name] = value
	}

	r.instances[id] = inst
	r.metrics.RecordInstances(r.realm, 1)
	r.logger.Debug("instance created", "instance", id, "class", class.Name())
	return inst, nil
}

// Instance looks up a live instance.
func (r *Realm) Instance(id string) (*Instance, bool) {
	inst, ok := r.instances[id]
	return inst, ok
}

// Instances returns the sorted IDs of live instances.
func (r *Realm) Instances() []string {
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// markDirty queues inst for the next flush and requests a checkpoint if
// none is pending.
func (r *Realm) markDirty(inst *Instance) {
	if !inst.dirty {
		inst.dirty = true
		r.dirty = append(r.dirty, inst)
	}
	if !r.flushScheduled {
		r.flushScheduled = true
		r.cp.ScheduleFlush(r.Flush)
	}
}

func (r *Realm) send(ctx context.Context, msg ir.Message) error {
	msg.Origin = r.realm
	msg.Seq = r.clock.Next()
	if err := r.ch.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s %s.%s: %w", msg.Kind, msg.InstanceID, msg.Name, err)
	}
	r.metrics.RecordMessage(r.realm, metrics.DirectionOut, msg.Kind)
	r.journalize(ctx, DirectionOut, OutcomeSent, msg)
	return nil
}

func (r *Realm) dispose(inst *Instance) {
	delete(r.instances, inst.id)
	if c, ok := r.ch.(Canceler); ok {
		c.Cancel(inst.id)
	}
	r.metrics.RecordInstances(r.realm, -1)
	r.logger.Debug("instance disposed", "instance", inst.id)
}
