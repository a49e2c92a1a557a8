// Package notify carries human-readable outcome events from the collection
// manager to whatever presents them (CLI output, HTTP clients, logs).
//
// The manager emits exactly one Notification per mutation attempt. Display
// timing and placement are the receiver's business.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/todo/internal/task"
)

// Level classifies a notification for presentation.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is one outcome event.
type Notification struct {
	Seq     int64     `json:"seq"`
	Level   Level     `json:"level"`
	Op      string    `json:"op"`
	TaskID  string    `json:"taskId,omitempty"`
	Message string    `json:"message"`
	Code    task.Code `json:"code,omitempty"`
	Err     error     `json:"-"`
}

// Failed reports whether n describes a failure.
func (n Notification) Failed() bool {
	return n.Level == LevelError
}

// Notifier receives notifications. Implementations must not block for long;
// they are called from the event loop.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(n Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) {
	f(n)
}

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Multi fans a notification out to every notifier in order.
func Multi(ns ...Notifier) Notifier {
	return Func(func(n Notification) {
		for _, x := range ns {
			x.Notify(n)
		}
	})
}

// Log writes notifications to logger: failures at Warn, the rest at Info.
func Log(logger *slog.Logger) Notifier {
	return Func(func(n Notification) {
		level := slog.LevelInfo
		attrs := []slog.Attr{
			slog.Int64("seq", n.Seq),
			slog.String("op", n.Op),
		}
		if n.TaskID != "" {
			attrs = append(attrs, slog.String("task", n.TaskID))
		}
		if n.Failed() {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("code", string(n.Code)))
		}
		logger.LogAttrs(context.Background(), level, n.Message, attrs...)
	})
}

// Recorder keeps the most recent notifications in memory.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

// NewRecorder keeps at most limit notifications; limit <= 0 keeps all.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Notify records n, evicting the oldest entry when full.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if r.limit > 0 && len(r.items) > r.limit {
		r.items = append([]Notification(nil), r.items[len(r.items)-r.limit:]...)
	}
}

// All returns a copy of the recorded notifications, oldest first.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Since returns the recorded notifications with Seq > seq.
func (r *Recorder) Since(seq int64) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Notification{}
	for _, n := range r.items {
		if n.Seq > seq {
			out = append(out, n)
		}
	}
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
