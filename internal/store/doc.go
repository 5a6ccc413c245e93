// Package store provides a SQLite-backed sync journal.
//
// Every message a realm sends or receives can be recorded with its outcome
// (sent, applied, echoed, rejected, dropped, queued). The journal is for
// diagnosis and golden traces only: property state is never restored from
// it.
//
// # Ordering
//
// Queries return entries ordered by seq ASC, then outbound before inbound,
// then id ASC COLLATE BINARY. When both realms share one clock, a send and
// its receipt carry the same seq, so the send sorts first.
//
// # Identity
//
// An entry's id hashes the realm, direction, outcome and the message's
// content-addressed ID (ir.MessageID). Recording the same observation
// twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
