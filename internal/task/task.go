package task

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Priority is the ordered urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists the priority values in rank order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// DefaultPriority is used when a task is created without one.
const DefaultPriority = PriorityMedium

// DefaultCategories is the category vocabulary offered when none is configured.
var DefaultCategories = []string{"Personal", "Work", "Shopping", "Professional"}

// DefaultCategory is used when a task is created without one.
const DefaultCategory = "Personal"

// Rank returns the sort rank of p: High=1, Medium=2, Low=3.
// Unknown priorities rank after Low so they sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return len(Priorities) + 1
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() <= len(Priorities)
}

// ParsePriority matches s case-insensitively against the known priorities.
// An empty string yields DefaultPriority.
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultPriority, nil
	}
	for _, p := range Priorities {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", Validation("parse priority", "unknown priority %q", s)
}

// Task is the central entity: one unit of work owned by a user.
type Task struct {
	ID        string
	Text      string
	Category  string
	Priority  Priority
	DueAt     time.Time // zero means no due date
	Completed bool
	OwnerID   string // set only when the store scopes tasks by owner
}

// NormalizeText trims surrounding whitespace and applies Unicode NFC so that
// visually identical input compares and searches equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Validate checks the invariants a task must satisfy before it is accepted
// into a collection or written to a store.
func (t Task) Validate() error {
	if NormalizeText(t.Text) == "" {
		return Validation("validate", "task text must not be empty")
	}
	if t.ID == "" {
		return Validation("validate", "task id must not be empty")
	}
	return nil
}

// Fields names the subset of task fields an update patches.
// Nil fields are left untouched.
type Fields struct {
	Text      *string
	Completed *bool
}

// TextField returns a patch that sets Text.
func TextField(text string) Fields {
	return Fields{Text: &text}
}

// CompletedField returns a patch that sets Completed.
func CompletedField(done bool) Fields {
	return Fields{Completed: &done}
}

// Apply writes the non-nil fields onto t.
func (f Fields) Apply(t *Task) {
	if f.Text != nil {
		t.Text = *f.Text
	}
	if f.Completed != nil {
		t.Completed = *f.Completed
	}
}

// Names returns the persisted names of the fields set in f.
func (f Fields) Names() []string {
	var names []string
	if f.Text != nil {
		names = append(names, "text")
	}
	if f.Completed != nil {
		names = append(names, "completed")
	}
	return names
}

// Empty reports whether f patches nothing.
func (f Fields) Empty() bool {
	return f.Text == nil && f.Completed == nil
}

// MatchCategory returns the spelling of s used in categories, matching
// case-insensitively. An empty s stays empty so the default applies.
func MatchCategory(categories []string, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, c := range categories {
		if strings.EqualFold(c, s) {
			return c, nil
		}
	}
	return "", Validation("category", "unknown category %q (want one of %s)", s, strings.Join(categories, ", "))
}
