// Package store is the durability boundary for task collections.
//
// Adapter is implemented by two backends:
//   - DocStore: a remote-style document collection on SQLite, scoped by owner
//   - BlobStore: a local directory holding one JSON array per collection
//
// Both hold the active set under the "tasks" collection and the archived set
// under "archivedTasks". The two collections are independent resources; no
// operation spans both atomically.
//
// # Errors
//
// Every failure is a *task.Error:
//   - NOT_FOUND: update, delete or lookup target is missing
//   - UNAUTHORIZED: an owner-scoped backend was called without an owner
//   - UNAVAILABLE: the backend itself failed (IO, SQL, encoding)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Document queries order by seq (insertion order), then key, so loads and
// lookups are deterministic.
package store
