package engine

import (
	"sync"

	"github.com/roach88/todo/internal/collection"
	"github.com/roach88/todo/internal/notify"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeCommand is a user mutation to apply.
	EventTypeCommand EventType = iota + 1
	// EventTypeCompletion is the result of a durable write.
	EventTypeCompletion
	// EventTypeSession is a sign-in or sign-out.
	EventTypeSession
	// EventTypeRead runs a read-only function against the manager.
	EventTypeRead
	// EventTypeIdle asks to be told when nothing is queued or in flight.
	EventTypeIdle
)

func (t EventType) String() string {
	switch t {
	case EventTypeCommand:
		return "command"
	case EventTypeCompletion:
		return "completion"
	case EventTypeSession:
		return "session"
	case EventTypeRead:
		return "read"
	case EventTypeIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the loop. Exactly one payload is set,
// matching Type.
type Event struct {
	Type EventType
	Seq  int64

	Command    *Command
	Completion *completion
	Session    *SessionChange
	Read       func(m *collection.Manager)
	Idle       chan struct{}
}

// SessionChange switches the owner. OK=false signs out.
type SessionChange struct {
	Owner string
	OK    bool
}

type completion struct {
	op    *collection.Op
	err   error
	reply chan<- notify.Notification
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so producers (CLI, HTTP handlers, write
// goroutines) never block on the loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	seq    int64 // last Seq handed out; Seq order is queue order
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue stamps e with the next Seq and adds it to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed, except for completions: writes
// started before Close still report back.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed && e.Type != EventTypeCompletion {
		return false
	}

	q.seq++
	e.Seq = q.seq
	q.events = append(q.events, e)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not pin the payload.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close refuses further events other than completions and wakes a blocked
// waiter.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Closed reports whether Close was called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
