package view

import (
	"strings"

	"github.com/roach88/todo/internal/task"
)

// Status selects tasks by completion.
type Status string

const (
	StatusAll       Status = "All"
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// Statuses lists the status filter values in display order.
var Statuses = []Status{StatusAll, StatusPending, StatusCompleted}

// SortKey selects the ordering of the projection.
type SortKey string

const (
	SortDueAt    SortKey = "dueAt"
	SortPriority SortKey = "priority"
	SortCategory SortKey = "category"
)

// SortKeys lists the sort keys in display order.
var SortKeys = []SortKey{SortDueAt, SortPriority, SortCategory}

// FilterAll is the secondary filter value that passes every task.
const FilterAll = "All"

// Query is the full set of projection inputs besides the tasks themselves.
// The zero Query passes every task and sorts by due instant.
type Query struct {
	Status Status
	Filter string
	Search string
	SortBy SortKey
}

// ParseStatus matches s case-insensitively. Empty means StatusAll.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StatusAll, nil
	}
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", task.Validation("parse status", "unknown status %q (want All, Pending or Completed)", s)
}

// ParseSortKey matches s case-insensitively. Empty means SortDueAt.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortDueAt, nil
	}
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", task.Validation("parse sort", "unknown sort key %q (want dueAt, priority or category)", s)
}

// FilterValues returns the secondary filter vocabulary: All, the priorities,
// then the given categories.
func FilterValues(categories []string) []string {
	out := make([]string, 0, 1+len(task.Priorities)+len(categories))
	out = append(out, FilterAll)
	for _, p := range task.Priorities {
		out = append(out, string(p))
	}
	return append(out, categories...)
}
