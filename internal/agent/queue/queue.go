// Package queue provides a bounded, order-preserving holding area for
// captured events. Admission is controlled by a counting semaphore so
// producers block (with backpressure) instead of dropping events or growing
// memory without bound.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tracelight/agent/internal/agent/models"
)

// CapturedEvent is an event resident in the queue. It is owned exclusively
// by the queue until drained.
type CapturedEvent struct {
	ID         string
	Snapshot   models.ActivitySnapshot
	QueuedAt   time.Time
	RetryCount int
}

// BoundedEventQueue holds at most capacity events. The admission semaphore
// is decoupled from the structural lock so waiting producers are not starved
// by a slow drain.
type BoundedEventQueue struct {
	sem      *semaphore.Weighted
	capacity int

	mu     sync.Mutex
	events []CapturedEvent
}

// New returns a queue admitting at most capacity events at a time.
func New(capacity int) *BoundedEventQueue {
	return &BoundedEventQueue{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		events:   make([]CapturedEvent, 0, capacity),
	}
}

// Enqueue blocks until an admission permit is available, then appends the
// snapshot to the tail with a fresh identifier and zero retry count. It
// fails only when ctx is cancelled while waiting.
func (q *BoundedEventQueue) Enqueue(ctx context.Context, snap models.ActivitySnapshot) (CapturedEvent, error) {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return CapturedEvent{}, err
	}

	ev := CapturedEvent{
		ID:       uuid.NewString(),
		Snapshot: snap,
		QueuedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()

	return ev, nil
}

// Drain atomically removes and returns all resident events in insertion
// order, releasing one admission permit per removed event. Never blocks.
func (q *BoundedEventQueue) Drain() []CapturedEvent {
	q.mu.Lock()
	drained := q.events
	q.events = make([]CapturedEvent, 0, q.capacity)
	q.mu.Unlock()

	if n := len(drained); n > 0 {
		q.sem.Release(int64(n))
	}
	return drained
}

// Len reports the current resident count.
func (q *BoundedEventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// IsEmpty reports whether the queue holds no events.
func (q *BoundedEventQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Event finds a resident event by identifier with a linear scan.
func (q *BoundedEventQueue) Event(id string) (CapturedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ev := range q.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return CapturedEvent{}, false
}

// Capacity reports the configured maximum resident count.
func (q *BoundedEventQueue) Capacity() int {
	return q.capacity
}
