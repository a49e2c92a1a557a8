// Package task defines the task model shared by every other package.
//
// This package contains the Task entity, its priority ordering, the due
// instant helpers, the persisted record shapes and the error taxonomy. All
// other internal packages import task; task imports nothing internal.
//
// Key constraints:
//   - Text is never accepted or persisted empty (after trimming)
//   - Priority ranks High(1) < Medium(2) < Low(3); unknown values rank last
//   - DueAt is a single instant; split date/time input is joined on entry
//   - Records are validated and normalised on load, never trusted as-is
package task
