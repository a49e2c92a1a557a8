// Package collection owns the in-memory active and archived task sets and
// keeps them in step with a store.Adapter.
//
// Every mutation runs in three phases:
//
//	op, err := m.Add(...)      // applyLocal: validate, mutate memory, describe durable work
//	err = m.Persist(ctx, op)   // durable write; may run on any goroutine
//	n := m.Settle(op, err)     // reconcile and produce exactly one notification
//
// Add, ToggleComplete, Edit, Archive, DeleteActive, DeleteArchived and Settle
// touch the sets and must be called from a single goroutine (the engine
// loop). Persist only reads the Op and calls the adapter.
//
// # Reconciliation
//
// A failed durable write rolls the optimistic change back, unless a later
// mutation already changed the same field or record:
//   - add: the inserted task is removed
//   - toggle, edit: the old value is restored if the field still holds the new one
//   - delete: the task is re-inserted at its old position if its id is free
//   - archive: the task moves back to the active set; a half-done archive
//     first deletes the archived copy
//
// Reset starts a new session epoch. Ops from an older epoch settle without
// touching memory but still yield their notification.
package collection
