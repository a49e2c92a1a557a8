package harness

import (
	"github.com/roach88/todo/internal/notify"
	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/task"
)

// Trace event types.
const (
	EventCommand      = "command"
	EventSession      = "session"
	EventNotification = "notification"
)

// TraceEvent is one entry of a scenario trace. Step 0 is the initial load.
type TraceEvent struct {
	Step    int    `json:"step"`
	Type    string `json:"type"`
	Op      string `json:"op,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Seq     int64  `json:"seq,omitempty"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists commands, session changes and notifications in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Owner is the session owner at the end of the scenario.
	Owner string `json:"owner"`

	// Active and Archived are the final in-memory sets.
	Active   []task.Task `json:"active"`
	Archived []task.Task `json:"archived"`

	// Stored holds both collections read back from the store at the end.
	Stored map[store.Collection][]task.Task `json:"stored"`

	Notifications []notify.Notification `json:"notifications"`

	// Writes counts durable create, update and delete calls.
	Writes int `json:"writes"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Errors:        []string{},
		Active:        []task.Task{},
		Archived:      []task.Task{},
		Stored:        make(map[store.Collection][]task.Task),
		Notifications: []notify.Notification{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Set returns the in-memory set for c.
func (r *Result) Set(c store.Collection) []task.Task {
	if c == store.Archived {
		return r.Archived
	}
	return r.Active
}

func (r *Result) addNotifications(step int, ns []notify.Notification) {
	for _, n := range ns {
		r.Notifications = append(r.Notifications, n)
		r.Trace = append(r.Trace, TraceEvent{
			Step:    step,
			Type:    EventNotification,
			Op:      n.Op,
			TaskID:  n.TaskID,
			Seq:     n.Seq,
			Level:   string(n.Level),
			Message: n.Message,
			Code:    string(n.Code),
		})
	}
}
