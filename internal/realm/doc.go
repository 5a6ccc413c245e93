// Package realm runs one side of a dual-realm object.
//
// A Realm holds the instances living in one execution context (realm A or
// realm B). Each Instance stores the properties visible in that realm,
// queues emitted events until the next flush, and exchanges sync messages
// with its twin in the peer realm over a Channel.
//
// Write rule: every Set runs the property's validator, even when the
// proposed value equals the stored one. Sync rule: only a change of the
// stored value (by ir.Equal) emits a change event and, for shared
// properties, a PropertySet to the peer.
//
// On receipt the peer treats the value as a proposal and validates it
// again. When its validator settles on a different value, that value is
// sent back with Hops incremented. Termination of such chains is up to the
// validators; the hop count only feeds a warning.
//
// A Realm is not safe for concurrent use. Drive it from one engine.Loop.
package realm
