package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todo/internal/collection"
)

func commandEvent(id string) Event {
	return Event{Type: EventTypeCommand, Command: &Command{Kind: collection.KindToggle, TaskID: id}}
}

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(commandEvent("t1"))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, EventTypeCommand, got.Type)
	assert.Equal(t, "t1", got.Command.TaskID)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for _, id := range []string{"A", "B", "C"} {
		q.Enqueue(commandEvent(id))
	}

	for _, want := range []string{"A", "B", "C"} {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, e.Command.TaskID)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_Close_WakesWaiters(t *testing.T) {
	q := newEventQueue()

	done := make(chan bool)
	go func() {
		_, open := <-q.Wait()
		done <- open
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
		assert.True(t, q.Closed())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("waiter did not wake after close")
	}
}

func TestEventQueue_CompletionsAfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()

	assert.False(t, q.Enqueue(commandEvent("late")))
	assert.False(t, q.Enqueue(Event{Type: EventTypeIdle, Idle: make(chan struct{})}))
	require.True(t, q.Enqueue(Event{Type: EventTypeCompletion, Completion: &completion{}}))

	e, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, EventTypeCompletion, e.Type)
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close() // idempotent

	ok := q.Enqueue(commandEvent("after-close"))
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(commandEvent("1"))
	assert.Equal(t, 1, q.Len())

	q.Enqueue(commandEvent("2"))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(commandEvent("x"))
			}
		}()
	}
	wg.Wait()

	received := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		received++
	}
	assert.Equal(t, producers*eventsPerProducer, received)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "command", EventTypeCommand.String())
	assert.Equal(t, "completion", EventTypeCompletion.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

func TestEventQueue_SeqFollowsQueueOrder(t *testing.T) {
	q := newEventQueue()
	const producers = 20
	const perProducer = 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Enqueue(commandEvent("x"))
			}
		}()
	}
	wg.Wait()

	var want int64
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		want++
		require.Equal(t, want, e.Seq)
	}
	assert.Equal(t, int64(producers*perProducer), want)
}

func TestEventQueue_ClosedDoesNotAdvanceSeq(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(commandEvent("a"))
	q.Close()
	assert.False(t, q.Enqueue(commandEvent("b")))

	e, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, int64(1), q.seq)
}
