package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/task"
)

func TestSequentialKeys(t *testing.T) {
	k := NewSequentialKeys("t")
	assert.Equal(t, "t1", k.Generate())
	assert.Equal(t, "t2", k.Generate())

	k.Reset()
	assert.Equal(t, "t1", k.Generate())
}

func TestSequentialKeys_ThreadSafe(t *testing.T) {
	k := NewSequentialKeys("k")
	const n = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := k.Generate()
			mu.Lock()
			seen[key] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n, "every key must be unique")
}

func newFaulty(t *testing.T) *FaultyAdapter {
	t.Helper()
	blob, err := store.OpenBlob(t.TempDir())
	require.NoError(t, err)
	return NewFaultyAdapter(blob)
}

func TestFaultyAdapter_FailNext(t *testing.T) {
	f := newFaulty(t)
	ctx := context.Background()
	boom := task.Unavailable("create", errors.New("boom"))

	f.FailNext(MethodCreate, store.Archived, boom)

	// Active creates are unaffected.
	require.NoError(t, f.Create(ctx, "", store.Active, "1", task.Task{ID: "1", Text: "a"}))

	err := f.Create(ctx, "", store.Archived, "1", task.Task{ID: "1", Text: "a"})
	assert.ErrorIs(t, err, task.ErrUnavailable)

	// One-shot: the second archived create goes through.
	require.NoError(t, f.Create(ctx, "", store.Archived, "1", task.Task{ID: "1", Text: "a"}))

	calls := f.Calls()
	require.Len(t, calls, 3)
	assert.Error(t, calls[1].Err)
	assert.Equal(t, 3, f.Writes())
}

func TestFaultyAdapter_FailUntilCleared(t *testing.T) {
	f := newFaulty(t)
	ctx := context.Background()

	f.Fail(MethodLoad, "", errors.New("offline"), -1)
	for i := 0; i < 3; i++ {
		_, err := f.Load(ctx, "", store.Active)
		assert.Error(t, err)
	}

	f.Clear()
	_, err := f.Load(ctx, "", store.Active)
	assert.NoError(t, err)
}

func TestFaultyAdapter_Pause(t *testing.T) {
	f := newFaulty(t)
	ctx := context.Background()

	release := f.Pause(MethodCreate)
	done := make(chan error, 1)
	go func() {
		done <- f.Create(ctx, "", store.Active, "1", task.Task{ID: "1", Text: "a"})
	}()

	select {
	case <-done:
		t.Fatal("create returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("create did not resume after release")
	}
	release() // idempotent
}

func TestFaultyAdapter_PauseHonoursContext(t *testing.T) {
	f := newFaulty(t)
	f.Pause(MethodDelete)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Delete(ctx, "", store.Active, "1")
	assert.ErrorIs(t, err, task.ErrUnavailable)
}
