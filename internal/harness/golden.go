package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/duet/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonical converts a TraceSnapshot to an IRObject for canonical JSON
// serialization.
func (s *TraceSnapshot) toCanonical() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, e := range s.Trace {
		obj := ir.IRObject{
			"realm":     ir.IRString(e.Realm),
			"direction": ir.IRString(e.Direction),
			"outcome":   ir.IRString(e.Outcome),
			"kind":      ir.IRString(e.Kind),
			"instance":  ir.IRString(e.Instance),
			"name":      ir.IRString(e.Name),
			"origin":    ir.IRString(e.Origin),
			"seq":       ir.IRInt(e.Seq),
			"hops":      ir.IRInt(e.Hops),
		}
		if e.Value != nil {
			obj["value"] = e.Value
		}
		if e.Kind == ir.KindEventBatch {
			payloads := e.Payloads
			if payloads == nil {
				payloads = ir.IRArray{}
			}
			obj["payloads"] = payloads
		}
		trace[i] = obj
	}
	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
	}
}

// Marshal returns the snapshot's canonical JSON.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
