// Package queue provides a thread-safe FIFO used to spool work that
// cannot be delivered yet.
package queue

import "sync"

// Queue is a generic FIFO safe for concurrent use. A queue built with
// Bounded evicts its oldest items instead of growing without limit.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int // 0 means unbounded
	evicted int
}

// New creates an empty queue with no size limit.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Bounded creates an empty queue holding at most limit items. Pushing
// past the limit drops the oldest entries first.
func Bounded[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends items, evicting from the front when bounded.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	if q.limit > 0 && len(q.items) > q.limit {
		over := len(q.items) - q.limit
		q.items = append(q.items[:0], q.items[over:]...)
		q.evicted += over
	}
}

// Pop removes and returns the oldest item. The second result is false
// when the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero // let the GC have it
	q.items = q.items[1:]
	return item, true
}

// Drain returns everything in the queue, oldest first, and empties it.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Clear discards all queued items.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Len reports how many items are queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue holds nothing.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Evicted reports how many items a bounded queue has dropped so far.
func (q *Queue[T]) Evicted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
