package view

import (
	"slices"
	"strings"

	"github.com/roach88/todo/internal/task"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Project returns the tasks passing q, sorted by q.SortBy.
// The input slice is not modified.
func Project(tasks []task.Task, q Query) []task.Task {
	fold := cases.Fold()
	needle := fold.String(task.NormalizeText(q.Search))

	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchStatus(t, q.Status) || !matchFilter(t, q.Filter) {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(task.NormalizeText(t.Text)), needle) {
			continue
		}
		out = append(out, t)
	}

	slices.SortStableFunc(out, comparator(q.SortBy))
	return out
}

func matchStatus(t task.Task, s Status) bool {
	switch s {
	case StatusPending:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

// matchFilter passes t when f names either its priority or its category.
func matchFilter(t task.Task, f string) bool {
	if f == "" || f == FilterAll {
		return true
	}
	return string(t.Priority) == f || t.Category == f
}

func comparator(k SortKey) func(a, b task.Task) int {
	switch k {
	case SortPriority:
		return func(a, b task.Task) int {
			return a.Priority.Rank() - b.Priority.Rank()
		}
	case SortCategory:
		// Collators carry buffers and are not safe to share; one per projection.
		c := collate.New(language.Und)
		return func(a, b task.Task) int {
			return c.CompareString(a.Category, b.Category)
		}
	default:
		return compareDue
	}
}

// compareDue orders by instant ascending; tasks without a due date go last.
func compareDue(a, b task.Task) int {
	switch {
	case a.DueAt.IsZero() && b.DueAt.IsZero():
		return 0
	case a.DueAt.IsZero():
		return 1
	case b.DueAt.IsZero():
		return -1
	}
	return a.DueAt.Compare(b.DueAt)
}
