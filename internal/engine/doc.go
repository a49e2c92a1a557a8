// Package engine runs the task collection on a single-writer event loop.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Commands, durable-write completions, session changes and reads all flow
// through one FIFO queue. Run dequeues them one at a time and is the only
// goroutine that touches the collection.Manager, so optimistic updates never
// interleave and need no locking.
//
// Event Processing Flow:
//  1. A command is applied locally (validate, mutate memory) on the loop
//  2. Its durable write starts in a separate goroutine
//  3. The write's result is enqueued as a completion event
//  4. The loop settles the completion and emits one notification
//
// The loop stays free while writes are in flight. Writes are never
// cancelled once issued: they run on a context detached from the caller's.
// Two writes to the same task may resolve in either order (last write wins).
//
// Session changes clear the sets, start a new epoch and reload. Completions
// from the previous epoch still notify but leave memory alone.
package engine
