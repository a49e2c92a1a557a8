package collection

import (
	"github.com/roach88/todo/internal/task"
)

// Kind names a collection operation.
type Kind string

const (
	KindLoad           Kind = "load"
	KindAdd            Kind = "add"
	KindToggle         Kind = "toggle"
	KindEdit           Kind = "edit"
	KindArchive        Kind = "archive"
	KindDelete         Kind = "delete"
	KindDeleteArchived Kind = "deleteArchived"
)

// Kinds lists every operation kind.
var Kinds = []Kind{KindLoad, KindAdd, KindToggle, KindEdit, KindArchive, KindDelete, KindDeleteArchived}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", task.Validation("parse op", "unknown operation %q", s)
}

// Op is the durable half of a mutation, produced by the local half.
//
// An Op is owned by whoever holds it: the loop hands it to Persist and takes
// it back for Settle. Persist records progress on it.
type Op struct {
	Kind   Kind
	TaskID string
	Owner  string
	Epoch  uint64

	// Key is the store key written: the active key for add, toggle, edit and
	// delete, the archived key for archive and deleteArchived.
	Key string

	Task   task.Task   // snapshot written by add and archive
	Fields task.Fields // patch written by toggle and edit

	prev  task.Task // value before the local change
	index int       // position before removal

	// Set by Persist.
	stage       stage
	compensated error
	loaded      [2][]task.Task

	superseded bool // a newer write of the same field succeeded
}

// stage records how far a multi-step Persist got.
type stage int

const (
	stageNone stage = iota
	stageLoadedActive
	stageArchiveCreated
	stageArchiveDone
	stageLookedUp
)
