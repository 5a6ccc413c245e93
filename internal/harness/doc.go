// Package harness runs two-realm scenarios against declared classes.
//
// A scenario instantiates one class in realm A and realm B, linked by an
// in-process session pair, drives writes and emits on either side, and
// checks the resulting values and sync journal.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: model_d_converges
//	description: "ModelD's bounded validators settle a write"
//	classes:
//	  - classes.cue
//	class: ModelD
//	instance: d-1
//	steps:
//	  - {realm: a, set: foo2, value: 10}
//	  - {settle: true}
//	assertions:
//	  - {type: property, realm: b, property: foo2, equals: 16}
//	  - {type: outcome_count, outcome: echoed, count: 2}
//
// # Steps
//
//   - set: write a property in one realm
//   - emit: emit an event count times inside one task, so the payloads
//     travel as one batch
//   - dispose: dispose one realm's copy
//   - flush: run the realm's queued work (received messages, flushes)
//   - settle: run both realms until no work is outstanding
//
// # Assertion Types
//
//   - property: a realm's stored value
//   - properties, local_properties: the class's introspection lists
//   - outcome_count: journal entries with an outcome
//   - disposed: a realm no longer holds the instance
//
// # Deterministic Testing
//
// Both realms run in the caller's goroutine and share one logical clock, so
// the same scenario always produces the same trace. Traces are compared
// against golden files in testdata/golden.
package harness
