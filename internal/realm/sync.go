package realm

import (
	"context"
	"fmt"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/metrics"
)

// Receive applies a sync message from the peer realm.
//
// A PropertySet is validated as a proposal. If the stored result differs
// from the received value it is sent back with Hops+1. An EventBatch is
// queued for the next flush and not forwarded again.
//
// Messages for unknown or disposed instances are dropped without error.
// A rejected value returns the *ValidationError and keeps the prior value.
func (r *Realm) Receive(ctx context.Context, msg ir.Message) error {
	r.metrics.RecordMessage(r.realm, metrics.DirectionIn, msg.Kind)

	inst, ok := r.instances[msg.InstanceID]
	if !ok {
		r.drop(ctx, msg, "no such instance")
		return nil
	}

	switch msg.Kind {
	case ir.KindPropertySet:
		return r.receiveProperty(ctx, inst, msg)
	case ir.KindEventBatch:
		r.receiveBatch(ctx, inst, msg)
		return nil
	default:
		r.drop(ctx, msg, "unknown message kind")
		return nil
	}
}

func (r *Realm) receiveProperty(ctx context.Context, inst *Instance, msg ir.Message) error {
	prop, ok := inst.manifest.Property(msg.Name)
	if !ok || prop.Scope != ir.ScopeShared {
		r.drop(ctx, msg, "not a shared property")
		return nil
	}

	r.metrics.RecordHops(r.realm, msg.Hops)
	if r.hopWarning > 0 && msg.Hops >= r.hopWarning {
		r.metrics.RecordHopWarning(r.realm)
		r.logger.Warn("property write still bouncing between realms",
			"instance", inst.id,
			"property", msg.Name,
			"hops", msg.Hops)
	}

	stored, _, err := inst.apply(msg.Name, msg.Value)
	if err != nil {
		r.journalize(ctx, DirectionIn, OutcomeRejected, msg)
		r.logger.Warn("received write rejected",
			"instance", inst.id,
			"property", msg.Name,
			"error", err)
		return err
	}

	if ir.Equal(stored, msg.Value) {
		r.journalize(ctx, DirectionIn, OutcomeApplied, msg)
		return nil
	}

	r.journalize(ctx, DirectionIn, OutcomeEchoed, msg)
	return r.send(ctx, ir.Message{
		Kind:       ir.KindPropertySet,
		InstanceID: inst.id,
		Name:       msg.Name,
		Value:      stored,
		Hops:       msg.Hops + 1,
	})
}

func (r *Realm) receiveBatch(ctx context.Context, inst *Instance, msg ir.Message) {
	ev, ok := inst.manifest.Event(msg.Name)
	if !ok || !ev.Shared() {
		r.drop(ctx, msg, "not a shared event")
		return
	}
	for _, p := range msg.Payloads {
		inst.enqueue(msg.Name, p)
	}
	r.journalize(ctx, DirectionIn, OutcomeQueued, msg)
}

func (r *Realm) drop(ctx context.Context, msg ir.Message, reason string) {
	r.metrics.RecordMessage(r.realm, metrics.DirectionDropped, msg.Kind)
	r.journalize(ctx, DirectionIn, OutcomeDropped, msg)
	r.logger.Debug("sync message dropped",
		"instance", msg.InstanceID,
		"kind", msg.Kind,
		"name", msg.Name,
		"reason", reason)
}

// ReceiveBytes decodes an encoded message and applies it.
func (r *Realm) ReceiveBytes(ctx context.Context, data []byte) error {
	msg, err := ir.DecodeMessage(data)
	if err != nil {
		return fmt.Errorf("realm %s: %w", r.realm, err)
	}
	return r.Receive(ctx, msg)
}
