package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/todo/internal/collection"
	"github.com/roach88/todo/internal/notify"
	"github.com/roach88/todo/internal/session"
	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/task"
)

// Command is a user mutation. TaskID may be a full id or a unique prefix of
// one; it is resolved on the loop.
type Command struct {
	Kind     collection.Kind
	TaskID   string
	Text     string
	Category string
	DueAt    time.Time
	Priority task.Priority

	reply chan<- notify.Notification
}

// Snapshot is a copy of the collection state at one point of the loop.
type Snapshot struct {
	Owner    string
	Epoch    uint64
	Active   []task.Task
	Archived []task.Task
}

// Engine is the single-writer event loop around a collection.Manager.
//
// Thread-safety model:
//   - Submit, Do, SetSession, Read, Snapshot, Wait: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Engine struct {
	manager  *collection.Manager
	notifier notify.Notifier
	logger   *slog.Logger
	queue    *eventQueue

	writeCtx context.Context
	writes   sync.WaitGroup

	// Loop-only state.
	inflight int
	idle     []chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets where notifications go. Default: discarded.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine driving m. Call Run to start processing.
func New(m *collection.Manager, opts ...Option) *Engine {
	e := &Engine{
		manager:  m,
		notifier: notify.Discard,
		logger:   slog.Default(),
		queue:    newEventQueue(),
		writeCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) enqueue(ev Event) error {
	if !e.queue.Enqueue(ev) {
		return ErrStopped
	}
	return nil
}

// Submit queues cmd without waiting for it. Its outcome is reported only
// through the notifier.
func (e *Engine) Submit(cmd Command) error {
	cmd.reply = nil
	return e.enqueue(Event{Type: EventTypeCommand, Command: &cmd})
}

// Do queues cmd and waits for its notification: the settle outcome for
// accepted commands, the rejection for refused ones.
func (e *Engine) Do(ctx context.Context, cmd Command) (notify.Notification, error) {
	reply := make(chan notify.Notification, 1)
	cmd.reply = reply
	if err := e.enqueue(Event{Type: EventTypeCommand, Command: &cmd}); err != nil {
		return notify.Notification{}, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return notify.Notification{}, ctx.Err()
	}
}

// SetSession queues a session change. ok=false signs out.
func (e *Engine) SetSession(owner string, ok bool) error {
	if !ok {
		owner = ""
	}
	return e.enqueue(Event{Type: EventTypeSession, Session: &SessionChange{Owner: owner, OK: ok}})
}

// Follow applies src's current session and every later change.
// The returned function stops following.
func (e *Engine) Follow(src session.Source) (cancel func()) {
	cancel = src.Subscribe(func(owner string, ok bool) {
		if err := e.SetSession(owner, ok); err != nil {
			e.logger.Debug("session change dropped", "error", err)
		}
	})
	owner, ok := src.Current()
	if err := e.SetSession(owner, ok); err != nil {
		e.logger.Debug("session change dropped", "error", err)
	}
	return cancel
}

// Read runs fn on the loop and waits for it. fn must not retain m.
func (e *Engine) Read(ctx context.Context, fn func(m *collection.Manager)) error {
	done := make(chan struct{})
	err := e.enqueue(Event{Type: EventTypeRead, Read: func(m *collection.Manager) {
		defer close(done)
		fn(m)
	}})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns copies of both sets.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := e.Read(ctx, func(m *collection.Manager) {
		snap = Snapshot{
			Owner:    m.Owner(),
			Epoch:    m.Epoch(),
			Active:   m.Active(),
			Archived: m.Archived(),
		}
	})
	return snap, err
}

// Wait blocks until no events are queued and no durable writes are in flight.
func (e *Engine) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	if err := e.enqueue(Event{Type: EventTypeIdle, Idle: idle}); err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop is called. Either one closes the
// queue to new work; Run then keeps processing what was already accepted
// and settles every durable write in flight before it returns, so each
// accepted command still gets its notification.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.writeCtx = context.WithoutCancel(ctx)
	defer e.writes.Wait()

	e.logger.Info("engine starting")

	done := ctx.Done()
	var stopErr error
	for {
		if event, ok := e.queue.TryDequeue(); ok {
			e.process(event)
			continue
		}
		if e.queue.Closed() && e.inflight == 0 {
			e.logger.Info("engine stopped")
			return stopErr
		}

		select {
		case <-done:
			e.logger.Info("engine stopping: context cancelled", "inflight", e.inflight)
			stopErr = ctx.Err()
			done = nil
			e.queue.Close()

		case <-e.queue.Wait():
		}
	}
}

// Stop closes the queue to new work; Run returns once everything accepted
// so far has settled.
func (e *Engine) Stop() {
	e.queue.Close()
}

// process handles one event.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) process(ev Event) {
	e.logger.Debug("processing event", "seq", ev.Seq, "type", ev.Type.String())

	switch ev.Type {
	case EventTypeCommand:
		e.processCommand(ev.Command)

	case EventTypeCompletion:
		c := ev.Completion
		e.inflight--
		e.emit(e.manager.Settle(c.op, c.err), c.reply)

	case EventTypeSession:
		op := e.manager.SwitchSession(ev.Session.Owner)
		e.logger.Info("session changed", "owner", ev.Session.Owner, "signed_in", ev.Session.OK, "epoch", op.Epoch)
		e.startWrite(op, nil)

	case EventTypeRead:
		ev.Read(e.manager)

	case EventTypeIdle:
		e.idle = append(e.idle, ev.Idle)

	default:
		e.logger.Error("unknown event type", "seq", ev.Seq, "type", int(ev.Type))
	}

	if e.inflight == 0 && e.queue.Len() == 0 {
		for _, ch := range e.idle {
			close(ch)
		}
		e.idle = nil
	}
}

func (e *Engine) processCommand(cmd *Command) {
	op, err := e.applyLocal(cmd)
	if err != nil {
		e.emit(e.manager.Fail(cmd.Kind, cmd.TaskID, err), cmd.reply)
		return
	}
	e.startWrite(op, cmd.reply)
}

// applyLocal runs the synchronous half of cmd.
func (e *Engine) applyLocal(cmd *Command) (*collection.Op, error) {
	m := e.manager

	switch cmd.Kind {
	case collection.KindLoad:
		return m.Reload(), nil
	case collection.KindAdd:
		return m.Add(cmd.Text, cmd.Category, cmd.DueAt, cmd.Priority)
	}

	c := store.Active
	if cmd.Kind == collection.KindDeleteArchived {
		c = store.Archived
	}
	id, err := m.Resolve(c, cmd.TaskID)
	if err != nil {
		if !errors.Is(err, task.ErrNotFound) {
			return nil, err
		}
		// Let the manager report it (Unauthorized takes precedence).
		id = cmd.TaskID
	}

	switch cmd.Kind {
	case collection.KindToggle:
		return m.ToggleComplete(id)
	case collection.KindEdit:
		return m.Edit(id, cmd.Text)
	case collection.KindArchive:
		return m.Archive(id)
	case collection.KindDelete:
		return m.DeleteActive(id)
	case collection.KindDeleteArchived:
		return m.DeleteArchived(id)
	}
	return nil, task.Validation("apply", "unknown command %q", cmd.Kind)
}

// startWrite runs op's durable half off the loop and queues its completion.
func (e *Engine) startWrite(op *collection.Op, reply chan<- notify.Notification) {
	e.inflight++
	e.writes.Add(1)
	ctx := e.writeCtx

	go func() {
		defer e.writes.Done()
		err := e.manager.Persist(ctx, op)
		ev := Event{Type: EventTypeCompletion, Completion: &completion{op: op, err: err, reply: reply}}
		if !e.queue.Enqueue(ev) {
			e.logger.Error("completion refused", "op", op.Kind, "task", op.TaskID, "error", err)
		}
	}()
}

func (e *Engine) emit(n notify.Notification, reply chan<- notify.Notification) {
	e.logger.Debug("notification", "seq", n.Seq, "op", n.Op, "level", n.Level, "message", n.Message)
	e.notifier.Notify(n)
	if reply != nil {
		reply <- n
	}
}
