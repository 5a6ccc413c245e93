package harness

import (
	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/metrics"
	"github.com/roach88/duet/internal/store"
)

// TraceEvent is one journal entry, flattened for assertions and golden
// comparison.
type TraceEvent struct {
	Realm     ir.Realm       `json:"realm"`
	Direction string         `json:"direction"` // "out" or "in"
	Outcome   string         `json:"outcome"`
	Kind      ir.MessageKind `json:"kind"`
	Instance  string         `json:"instance"`
	Name      string         `json:"name"`
	Value     ir.IRValue     `json:"value,omitempty"`
	Payloads  ir.IRArray     `json:"payloads,omitempty"`
	Origin    ir.Realm       `json:"origin"`
	Seq       int64          `json:"seq"`
	Hops      int64          `json:"hops"`
}

func traceEvent(e store.Entry) TraceEvent {
	m := e.Message
	return TraceEvent{
		Realm:     e.Realm,
		Direction: string(e.Direction),
		Outcome:   string(e.Outcome),
		Kind:      m.Kind,
		Instance:  m.InstanceID,
		Name:      m.Name,
		Value:     m.Value,
		Payloads:  m.Payloads,
		Origin:    m.Origin,
		Seq:       m.Seq,
		Hops:      m.Hops,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates overall success: every step behaved as expected and
	// every assertion held.
	Pass bool `json:"pass"`

	// Trace contains the journal in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed steps and assertions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Warnings contains static cycle warnings for the loaded classes.
	Warnings []string `json:"warnings,omitempty"`

	// Values holds the instance's final property values per realm. A
	// disposed instance has no entry.
	Values map[ir.Realm]ir.IRObject `json:"values"`

	// Metrics is the scenario's collector.
	Metrics *metrics.Collector `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Values: make(map[ir.Realm]ir.IRObject),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
