package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelight/agent/internal/agent/models"
)

func snap(name string) models.ActivitySnapshot {
	return models.ActivitySnapshot{
		ProcessName: name,
		WindowTitle: name + " window",
		Timestamp:   time.Now().UTC(),
	}
}

func TestEnqueueDrain_InsertionOrder(t *testing.T) {
	q := New(10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, snap(fmt.Sprintf("app%d", i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, q.Len())
	assert.False(t, q.IsEmpty())

	events := q.Drain()
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("app%d", i), ev.Snapshot.ProcessName)
		assert.NotEmpty(t, ev.ID)
		assert.Zero(t, ev.RetryCount)
	}
	assert.True(t, q.IsEmpty())
}

func TestEnqueue_UniqueIDs(t *testing.T) {
	q := New(10)
	ctx := context.Background()

	e1, err := q.Enqueue(ctx, snap("a"))
	require.NoError(t, err)
	e2, err := q.Enqueue(ctx, snap("a"))
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID, e2.ID)
}

func TestDrain_EmptyNeverBlocks(t *testing.T) {
	q := New(10)
	events := q.Drain()
	assert.Empty(t, events)
	assert.True(t, q.IsEmpty())
}

func TestEnqueue_BlocksAtCapacityUntilDrain(t *testing.T) {
	const capacity = 3
	q := New(capacity)
	ctx := context.Background()

	for i := 0; i < capacity; i++ {
		_, err := q.Enqueue(ctx, snap(fmt.Sprintf("app%d", i)))
		require.NoError(t, err)
	}
	assert.Equal(t, capacity, q.Len())

	admitted := make(chan struct{})
	go func() {
		_, err := q.Enqueue(ctx, snap("overflow"))
		assert.NoError(t, err)
		close(admitted)
	}()

	select {
	case <-admitted:
		t.Fatal("enqueue past capacity should block until a drain frees space")
	case <-time.After(50 * time.Millisecond):
	}

	events := q.Drain()
	assert.Len(t, events, capacity)

	select {
	case <-admitted:
	case <-time.After(time.Second):
		t.Fatal("enqueue should complete after drain released permits")
	}

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, "overflow", q.Drain()[0].Snapshot.ProcessName)
}

func TestEnqueue_CancelledContextWhileWaiting(t *testing.T) {
	q := New(1)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, snap("first"))
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = q.Enqueue(cctx, snap("second"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The failed enqueue must not leak a permit or an event.
	assert.Equal(t, 1, q.Len())
}

func TestEvent_LookupByID(t *testing.T) {
	q := New(5)
	ctx := context.Background()

	e1, err := q.Enqueue(ctx, snap("a"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, snap("b"))
	require.NoError(t, err)

	found, ok := q.Event(e1.ID)
	require.True(t, ok)
	assert.Equal(t, "a", found.Snapshot.ProcessName)

	_, ok = q.Event("no-such-id")
	assert.False(t, ok)

	q.Drain()
	_, ok = q.Event(e1.ID)
	assert.False(t, ok, "drained events are no longer resident")
}

func TestConcurrentEnqueueDrain(t *testing.T) {
	const capacity = 8
	const total = 200
	q := New(capacity)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			_, err := q.Enqueue(ctx, snap(fmt.Sprintf("app%d", i)))
			assert.NoError(t, err)
		}
		close(done)
	}()

	var drained []CapturedEvent
	deadline := time.After(5 * time.Second)
	for len(drained) < total {
		drained = append(drained, q.Drain()...)
		select {
		case <-deadline:
			t.Fatalf("timed out with %d of %d events drained", len(drained), total)
		default:
		}
		time.Sleep(time.Millisecond)
	}
	<-done

	require.Len(t, drained, total)
	for i, ev := range drained {
		assert.Equal(t, fmt.Sprintf("app%d", i), ev.Snapshot.ProcessName, "drain preserves insertion order")
	}
}
