// Package engine provides the cooperative scheduler each realm runs on.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// A realm's property writes, validator calls, handler invocations and
// received sync messages all execute as tasks on one Loop goroutine, so none
// of them overlap within a realm and none need locks.
//
// Task Processing Flow:
//  1. Work is submitted as a Task (FIFO)
//  2. Run() dequeues one task and runs it to completion
//  3. The loop reaches a checkpoint and runs the flush callbacks scheduled
//     so far (event delivery)
//  4. Flushes scheduled during a checkpoint wait for the next one
//
// Two realms run two loops. The only thing they share is the session
// channel, which delivers each message as a task on the receiving loop.
// A shared Tracker lets a caller wait until both loops are quiescent.
//
// Loop also offers Drain, which performs the same steps in the calling
// goroutine for deterministic tests.
package engine
