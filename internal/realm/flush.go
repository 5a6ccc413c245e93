package realm

import (
	"context"
	"fmt"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
)

type batch struct {
	event    string
	payloads ir.IRArray
}

// Flush delivers queued events. For each dirty instance, in the order it was
// first queued, and each event, in first-emit order, the class handlers
// run once with the whole batch, then the runtime subscribers. Outbound
// batches of shared events are sent afterwards.
//
// Events emitted while the flush runs are delivered by the next one.
func (r *Realm) Flush(ctx context.Context) {
	r.flushScheduled = false
	dirty := r.dirty
	r.dirty = nil

	type snapshot struct {
		inst     *Instance
		pending  []batch
		outbound []batch
	}
	snaps := make([]snapshot, 0, len(dirty))
	for _, inst := range dirty {
		inst.dirty = false
		if inst.disposed {
			continue
		}
		snaps = append(snaps, snapshot{
			inst:     inst,
			pending:  takeBatches(&inst.pending, &inst.pendingOrder),
			outbound: takeBatches(&inst.outbound, &inst.outboundOrder),
		})
	}

	for _, s := range snaps {
		for _, b := range s.pending {
			if s.inst.disposed {
				break
			}
			s.inst.deliver(ctx, b)
		}
	}

	for _, s := range snaps {
		if s.inst.disposed {
			continue
		}
		for _, b := range s.outbound {
			err := r.send(ctx, ir.Message{
				Kind:       ir.KindEventBatch,
				InstanceID: s.inst.id,
				Name:       b.event,
				Payloads:   b.payloads,
			})
			if err != nil {
				r.logger.Warn("event batch not sent",
					"instance", s.inst.id,
					"event", b.event,
					"error", err)
			}
		}
	}
}

func takeBatches(m *map[string]ir.IRArray, order *[]string) []batch {
	if len(*order) == 0 {
		return nil
	}
	out := make([]batch, 0, len(*order))
	for _, name := range *order {
		out = append(out, batch{event: name, payloads: (*m)[name]})
	}
	*m = make(map[string]ir.IRArray)
	*order = nil
	return out
}

func (i *Instance) deliver(ctx context.Context, b batch) {
	r := i.realm
	r.metrics.RecordFlush(r.realm, len(b.payloads))

	payloads := []ir.IRValue(b.payloads)
	for _, h := range i.manifest.Handlers(b.event) {
		fn, ok := i.unit.Handler(h)
		if !ok || fn == nil {
			continue
		}
		if err := i.call(ctx, fn, payloads); err != nil {
			r.metrics.RecordHandlerFailure(r.realm)
			r.logger.Warn("handler failed",
				"instance", i.id,
				"event", b.event,
				"handler", h.Name,
				"owner", h.Owner,
				"error", err)
		}
	}
	for _, sub := range append([]*subscription(nil), i.subs[b.event]...) {
		if err := i.call(ctx, sub.fn, payloads); err != nil {
			r.metrics.RecordHandlerFailure(r.realm)
			r.logger.Warn("subscriber failed",
				"instance", i.id,
				"event", b.event,
				"error", err)
		}
	}
}

// call runs a handler, converting a panic into an error so the remaining
// handlers of the flush still run.
func (i *Instance) call(ctx context.Context, fn model.Handler, payloads []ir.IRValue) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx, i, payloads)
}
