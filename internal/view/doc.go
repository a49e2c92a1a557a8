// Package view projects the active task set into the sequence a user sees.
//
// Project is a pure function of (tasks, Query). It holds no state between
// calls and never mutates its input; callers recompute whenever the task set
// or any query field changes.
//
// A task is included iff it passes all three predicates:
//   - Status: All, Pending (not completed) or Completed
//   - Filter: All, or a value matched against priority OR category
//   - Search: case-insensitive substring of the task text
//
// The result is stably sorted by due instant, priority rank or category.
package view
