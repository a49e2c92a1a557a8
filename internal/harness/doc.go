// Package harness runs task-tracker scenarios end to end.
//
// A scenario drives a real engine over a fresh store (an in-memory document
// store by default, or a temporary blob directory) with deterministic keys,
// injects store failures where asked, and checks the outcome.
//
// # Scenario Format
//
//	name: archive_rollback
//	description: "Archive whose active delete fails is undone"
//	backend: sqlite          # sqlite (default) or blob
//	owner: alice             # initial session; empty means signed out
//	seed:
//	  active:
//	    - { id: t1, text: "Buy milk", category: Shopping, priority: High }
//	steps:
//	  - do: archive
//	    id: t1
//	    fail:
//	      - { method: delete, collection: tasks }
//	    expect: { level: error, code: UNAVAILABLE }
//	  - sign_in: bob
//	assertions:
//	  - { type: count, collection: archivedTasks, count: 0 }
//	  - { type: task, id: t1, expect: { text: "Buy milk" } }
//
// A step is either a command (do: load, add, toggle, edit, archive, delete,
// deleteArchived), a sign_in, or a sign_out. Every step waits until the
// engine is idle before the next one starts. Faults apply to that step only.
//
// # Assertion Types
//
//   - count: size of the in-memory collection
//   - stored_count: size of the durable collection, read back from the store
//   - task: a task's fields (subset match)
//   - absent: the task is not in the collection
//   - view: ids produced by a projection query, in order
//   - notifications: every notification message, in order
//   - writes: number of durable create, update and delete calls
//
// # Deterministic Testing
//
// Store keys come from testutil.SequentialKeys ("k1", "k2", ...), so traces
// are stable and can be compared against golden files with RunWithGolden.
package harness
