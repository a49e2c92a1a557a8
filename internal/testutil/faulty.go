package testutil

import (
	"context"
	"sync"

	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/task"
)

// Adapter method names accepted by FaultyAdapter.
const (
	MethodLoad   = "load"
	MethodCreate = "create"
	MethodUpdate = "update"
	MethodDelete = "delete"
	MethodLookup = "lookup"
)

// Call is one recorded adapter call.
type Call struct {
	Method     string
	Collection store.Collection
	Key        string
	Err        error
}

type fault struct {
	method     string
	collection store.Collection // "" matches any
	err        error
	remaining  int // < 0 means until cleared
}

// FaultyAdapter wraps an Adapter, records every call and fails the ones
// matching injected faults. Paused methods block until released, which
// lets tests hold a durable write in flight.
//
// Thread-safety: FaultyAdapter is safe for concurrent use.
type FaultyAdapter struct {
	store.Adapter

	mu     sync.Mutex
	faults []*fault
	calls  []Call
	gates  map[string]chan struct{}
}

// NewFaultyAdapter wraps a.
func NewFaultyAdapter(a store.Adapter) *FaultyAdapter {
	return &FaultyAdapter{Adapter: a, gates: make(map[string]chan struct{})}
}

// FailNext makes the next call to method on c (any collection when c is "")
// fail with err.
func (f *FaultyAdapter) FailNext(method string, c store.Collection, err error) {
	f.Fail(method, c, err, 1)
}

// Fail makes the next n matching calls fail with err; n < 0 fails until Clear.
func (f *FaultyAdapter) Fail(method string, c store.Collection, err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, &fault{method: method, collection: c, err: err, remaining: n})
}

// Clear removes every pending fault.
func (f *FaultyAdapter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = nil
}

// Pause blocks calls to method until the returned release is called.
func (f *FaultyAdapter) Pause(method string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[method] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gates[method] == gate {
				delete(f.gates, method)
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns a copy of the recorded calls in order.
func (f *FaultyAdapter) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Writes counts recorded create, update and delete calls.
func (f *FaultyAdapter) Writes() int {
	n := 0
	for _, c := range f.Calls() {
		switch c.Method {
		case MethodCreate, MethodUpdate, MethodDelete:
			n++
		}
	}
	return n
}

// before waits on any gate for method and returns the injected error, if any.
func (f *FaultyAdapter) before(ctx context.Context, method string, c store.Collection) error {
	f.mu.Lock()
	gate := f.gates[method]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return task.Unavailable(method, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ft := range f.faults {
		if ft.method != method || (ft.collection != "" && ft.collection != c) {
			continue
		}
		if ft.remaining > 0 {
			ft.remaining--
			if ft.remaining == 0 {
				f.faults = append(f.faults[:i], f.faults[i+1:]...)
			}
		}
		return ft.err
	}
	return nil
}

func (f *FaultyAdapter) record(method string, c store.Collection, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Collection: c, Key: key, Err: err})
}

// Load implements store.Adapter.
func (f *FaultyAdapter) Load(ctx context.Context, owner string, c store.Collection) ([]task.Task, error) {
	if err := f.before(ctx, MethodLoad, c); err != nil {
		f.record(MethodLoad, c, "", err)
		return nil, err
	}
	tasks, err := f.Adapter.Load(ctx, owner, c)
	f.record(MethodLoad, c, "", err)
	return tasks, err
}

// Create implements store.Adapter.
func (f *FaultyAdapter) Create(ctx context.Context, owner string, c store.Collection, key string, t task.Task) error {
	err := f.before(ctx, MethodCreate, c)
	if err == nil {
		err = f.Adapter.Create(ctx, owner, c, key, t)
	}
	f.record(MethodCreate, c, key, err)
	return err
}

// Update implements store.Adapter.
func (f *FaultyAdapter) Update(ctx context.Context, owner string, c store.Collection, key string, fields task.Fields) error {
	err := f.before(ctx, MethodUpdate, c)
	if err == nil {
		err = f.Adapter.Update(ctx, owner, c, key, fields)
	}
	f.record(MethodUpdate, c, key, err)
	return err
}

// Delete implements store.Adapter.
func (f *FaultyAdapter) Delete(ctx context.Context, owner string, c store.Collection, key string) error {
	err := f.before(ctx, MethodDelete, c)
	if err == nil {
		err = f.Adapter.Delete(ctx, owner, c, key)
	}
	f.record(MethodDelete, c, key, err)
	return err
}

// Lookup implements store.Adapter.
func (f *FaultyAdapter) Lookup(ctx context.Context, owner string, c store.Collection, taskID string) (string, error) {
	if err := f.before(ctx, MethodLookup, c); err != nil {
		f.record(MethodLookup, c, taskID, err)
		return "", err
	}
	key, err := f.Adapter.Lookup(ctx, owner, c, taskID)
	f.record(MethodLookup, c, key, err)
	return key, err
}
