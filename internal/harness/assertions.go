package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/task"
	"github.com/roach88/todo/internal/view"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		switch ev.Type {
		case EventCommand:
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, ev.Op, ev.TaskID)
		case EventSession:
			fmt.Fprintf(&buf, "  [%d] session %q\n", i+1, ev.Owner)
		case EventNotification:
			fmt.Fprintf(&buf, "  [%d]   %s: %s\n", i+1, ev.Level, ev.Message)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	c := store.Active
	if a.Collection != "" {
		c = store.Collection(a.Collection)
	}

	switch a.Type {
	case AssertCount:
		return assertCount(r, a.Type, len(r.Set(c)), *a.Count, c)
	case AssertStoredCount:
		return assertCount(r, a.Type, len(r.Stored[c]), *a.Count, c)
	case AssertWrites:
		return assertCount(r, a.Type, r.Writes, *a.Count, "")
	case AssertTask:
		return assertTask(r, c, a)
	case AssertAbsent:
		return assertAbsent(r, c, a)
	case AssertView:
		return assertView(r, a)
	case AssertNotifications:
		return assertNotifications(r, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertCount(r *Result, typ string, got, want int, c store.Collection) error {
	if got == want {
		return nil
	}
	what := "writes"
	if c != "" {
		what = "tasks in " + string(c)
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%d %s", want, what),
		Actual:   fmt.Sprintf("%d", got),
		Trace:    r.Trace,
	}
}

func findTask(set []task.Task, id string) (task.Task, bool) {
	i := slices.IndexFunc(set, func(t task.Task) bool { return t.ID == id })
	if i < 0 {
		return task.Task{}, false
	}
	return set[i], true
}

// taskFields renders t the way scenario files spell field values.
func taskFields(t task.Task) map[string]string {
	return map[string]string{
		"id":        t.ID,
		"text":      t.Text,
		"category":  t.Category,
		"priority":  string(t.Priority),
		"completed": strconv.FormatBool(t.Completed),
		"due":       task.FormatDue(t.DueAt),
		"owner":     t.OwnerID,
	}
}

// assertTask checks a task's fields (subset semantics).
func assertTask(r *Result, c store.Collection, a Assertion) error {
	t, ok := findTask(r.Set(c), a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertTask,
			Expected: fmt.Sprintf("task %s in %s", a.ID, c),
			Actual:   "not found",
			Trace:    r.Trace,
		}
	}

	fields := taskFields(t)
	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		got, known := fields[k]
		if !known {
			return fmt.Errorf("unknown task field %q", k)
		}
		if want := fmt.Sprint(a.Expect[k]); got != want {
			return &AssertionError{
				Type:     AssertTask,
				Expected: fmt.Sprintf("%s.%s = %q", a.ID, k, want),
				Actual:   fmt.Sprintf("%q", got),
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

func assertAbsent(r *Result, c store.Collection, a Assertion) error {
	if _, ok := findTask(r.Set(c), a.ID); !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Expected: fmt.Sprintf("no task %s in %s", a.ID, c),
		Actual:   "present",
		Trace:    r.Trace,
	}
}

// assertView projects the active set and compares ids in order.
func assertView(r *Result, a Assertion) error {
	status, err := view.ParseStatus(a.Query.Status)
	if err != nil {
		return err
	}
	sortBy, err := view.ParseSortKey(a.Query.Sort)
	if err != nil {
		return err
	}
	q := view.Query{Status: status, Filter: a.Query.Filter, Search: a.Query.Search, SortBy: sortBy}

	got := []string{}
	for _, t := range view.Project(r.Active, q) {
		got = append(got, t.ID)
	}
	if slices.Equal(got, a.IDs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertView,
		Expected: fmt.Sprintf("%v", a.IDs),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    r.Trace,
	}
}

func assertNotifications(r *Result, a Assertion) error {
	got := make([]string, len(r.Notifications))
	for i, n := range r.Notifications {
		got[i] = n.Message
	}
	if slices.Equal(got, a.Messages) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotifications,
		Expected: fmt.Sprintf("%q", a.Messages),
		Actual:   fmt.Sprintf("%q", got),
		Trace:    r.Trace,
	}
}
