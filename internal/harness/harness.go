package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/todo/internal/collection"
	"github.com/roach88/todo/internal/engine"
	"github.com/roach88/todo/internal/notify"
	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/task"
	"github.com/roach88/todo/internal/testutil"
)

// Timeout bounds a whole scenario run.
const Timeout = 30 * time.Second

// errInjected is the cause of every injected store failure.
var errInjected = errors.New("injected failure")

// Harness holds the per-run fixtures of one scenario.
type Harness struct {
	base     store.Adapter
	faulty   *testutil.FaultyAdapter
	engine   *engine.Engine
	recorder *notify.Recorder
	logger   *slog.Logger
	lastSeq  int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store with sequential keys. Execution:
//  1. seed the store directly
//  2. start the engine and apply the initial session (step 0)
//  3. run each step, waiting for the engine to go idle after it
//  4. read back the final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base, cleanup, err := openBackend(scenario.Backend, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := seed(ctx, base, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	faulty := testutil.NewFaultyAdapter(base)
	recorder := notify.NewRecorder(0)
	manager := collection.New(faulty, collection.WithLogger(logger))
	eng := engine.New(manager, engine.WithNotifier(recorder), engine.WithLogger(logger))

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		stop()
		<-done
	}()

	h := &Harness{
		base:     base,
		faulty:   faulty,
		engine:   eng,
		recorder: recorder,
		logger:   logger,
	}

	result := NewResult()
	if err := h.initialSession(ctx, scenario.Owner, result); err != nil {
		return nil, err
	}
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// openBackend creates the scenario store. cleanup releases it.
func openBackend(backend string, logger *slog.Logger) (store.Adapter, func(), error) {
	keys := testutil.NewSequentialKeys("k")

	if backend == BackendBlob {
		dir, err := os.MkdirTemp("", "todo-scenario-*")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create blob dir: %w", err)
		}
		bs, err := store.OpenBlob(dir, store.WithKeys(keys), store.WithLogger(logger))
		if err != nil {
			os.RemoveAll(dir)
			return nil, nil, fmt.Errorf("failed to open blob store: %w", err)
		}
		return bs, func() { os.RemoveAll(dir) }, nil
	}

	ds, err := store.Open(store.MemoryPath, store.WithKeys(keys), store.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	return ds, func() { ds.Close() }, nil
}

// seed writes the scenario's starting tasks, bypassing the manager.
func seed(ctx context.Context, a store.Adapter, s *Scenario) error {
	write := func(c store.Collection, st SeedTask) error {
		t, err := st.task(s.Owner)
		if err != nil {
			return err
		}
		if t.ID == "" {
			t.ID = a.NewKey(store.Active, "")
		}
		key := t.ID
		if c == store.Archived {
			key = a.NewKey(store.Archived, t.ID)
		}
		return a.Create(ctx, s.Owner, c, key, t)
	}

	for _, st := range s.Seed.Active {
		if err := write(store.Active, st); err != nil {
			return err
		}
	}
	for _, st := range s.Seed.Archived {
		if err := write(store.Archived, st); err != nil {
			return err
		}
	}
	return nil
}

func (st SeedTask) task(owner string) (task.Task, error) {
	t := task.Task{
		ID:        st.ID,
		Text:      task.NormalizeText(st.Text),
		Category:  st.Category,
		Priority:  task.DefaultPriority,
		Completed: st.Completed,
		OwnerID:   owner,
	}
	if t.Category == "" {
		t.Category = task.DefaultCategory
	}
	if st.Priority != "" {
		p, err := task.ParsePriority(st.Priority)
		if err != nil {
			return task.Task{}, err
		}
		t.Priority = p
	}
	due, err := task.ParseDue(st.Due)
	if err != nil {
		return task.Task{}, err
	}
	t.DueAt = due
	return t, nil
}

func (h *Harness) initialSession(ctx context.Context, owner string, result *Result) error {
	result.Trace = append(result.Trace, TraceEvent{Step: 0, Type: EventSession, Owner: owner})
	if err := h.engine.SetSession(owner, owner != ""); err != nil {
		return err
	}
	return h.settle(ctx, 0, result)
}

// executeStep runs one step and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) error {
	for _, f := range step.Fail {
		times := f.Times
		if times == 0 {
			times = 1
		}
		h.faulty.Fail(f.Method, store.Collection(f.Collection), task.Unavailable(f.Method, errInjected), times)
	}
	defer h.faulty.Clear()

	switch {
	case step.SignIn != "":
		result.Trace = append(result.Trace, TraceEvent{Step: n, Type: EventSession, Owner: step.SignIn})
		if err := h.engine.SetSession(step.SignIn, true); err != nil {
			return err
		}

	case step.SignOut:
		result.Trace = append(result.Trace, TraceEvent{Step: n, Type: EventSession})
		if err := h.engine.SetSession("", false); err != nil {
			return err
		}

	default:
		cmd, err := step.command()
		if err != nil {
			return err
		}
		result.Trace = append(result.Trace, TraceEvent{Step: n, Type: EventCommand, Op: string(cmd.Kind), TaskID: cmd.TaskID})
		if err := h.engine.Submit(cmd); err != nil {
			return err
		}
	}

	before := len(result.Notifications)
	if err := h.settle(ctx, n, result); err != nil {
		return err
	}

	if step.Expect != nil {
		got := result.Notifications[before:]
		if len(got) == 0 {
			result.AddError(fmt.Sprintf("steps[%d]: expected a notification, got none", n-1))
			return nil
		}
		if msg := matchExpect(got[len(got)-1], step.Expect); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d]: %s", n-1, msg))
		}
	}

	h.logger.Info("step completed", "step", n, "notifications", len(result.Notifications)-before)
	return nil
}

// settle waits for the engine to go idle and moves new notifications into
// the trace.
func (h *Harness) settle(ctx context.Context, n int, result *Result) error {
	if err := h.engine.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for engine: %w", err)
	}
	ns := h.recorder.Since(h.lastSeq)
	if len(ns) > 0 {
		h.lastSeq = ns[len(ns)-1].Seq
	}
	result.addNotifications(n, ns)
	return nil
}

// collect records the final in-memory and durable state.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	snap, err := h.engine.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	result.Owner = snap.Owner
	result.Active = snap.Active
	result.Archived = snap.Archived
	result.Writes = h.faulty.Writes()

	for _, c := range []store.Collection{store.Active, store.Archived} {
		stored := []task.Task{}
		if snap.Owner != "" || !h.base.RequiresOwner() {
			stored, err = h.base.Load(ctx, snap.Owner, c)
			if err != nil {
				return fmt.Errorf("read back %s: %w", c, err)
			}
		}
		result.Stored[c] = stored
	}
	return nil
}

func (s Step) command() (engine.Command, error) {
	kind, err := collection.ParseKind(s.Do)
	if err != nil {
		return engine.Command{}, err
	}
	cmd := engine.Command{
		Kind:     kind,
		TaskID:   s.ID,
		Text:     s.Text,
		Category: s.Category,
	}
	if s.Priority != "" {
		p, err := task.ParsePriority(s.Priority)
		if err != nil {
			return engine.Command{}, err
		}
		cmd.Priority = p
	}
	if s.Due != "" {
		due, err := task.JoinDue(s.Due, s.Time)
		if err != nil {
			return engine.Command{}, err
		}
		cmd.DueAt = due
	}
	return cmd, nil
}

func matchExpect(n notify.Notification, e *Expect) string {
	if e.Level != "" && string(n.Level) != e.Level {
		return fmt.Sprintf("expected level %s, got %s (%s)", e.Level, n.Level, n.Message)
	}
	if e.Message != "" && n.Message != e.Message {
		return fmt.Sprintf("expected message %q, got %q", e.Message, n.Message)
	}
	if e.Code != "" && string(n.Code) != e.Code {
		return fmt.Sprintf("expected code %s, got %q (%s)", e.Code, n.Code, n.Message)
	}
	return ""
}
