// Package queue implements the bounded blocking FIFO connecting the
// pipeline stages. It is the monitor-style equivalent of the classic
// packet/picture queues of a player: producers block while the queue
// is full, consumers block while it is empty, and closing the queue
// wakes every waiter on both sides.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push once the queue is closed, and by Pop
// once the queue is closed and fully drained.
var ErrClosed = errors.New("queue is closed")

// Queue is a fixed-capacity FIFO over a ring buffer.
//
// The per-item weight function feeds the Size counter (e.g. compressed
// bytes for packets); it does not affect the capacity bound, which is
// always in items.
type Queue[T any] struct {
	locker   sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	items  []T
	head   int
	count  int
	weight func(T) int
	size   int
	closed bool
}

func New[T any](capacity int, weight func(T) int) *Queue[T] {
	if capacity <= 0 {
		panic("queue capacity must be positive")
	}
	if weight == nil {
		weight = func(T) int { return 1 }
	}
	q := &Queue[T]{
		items:  make([]T, capacity),
		weight: weight,
	}
	q.notFull = sync.NewCond(&q.locker)
	q.notEmpty = sync.NewCond(&q.locker)
	return q
}

// Push appends an item, blocking while the queue is at capacity.
// It returns ErrClosed (without consuming the item) if the queue is
// closed, or gets closed while waiting for space.
func (q *Queue[T]) Push(item T) error {
	q.locker.Lock()
	defer q.locker.Unlock()
	for q.count == len(q.items) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrClosed
	}
	q.items[(q.head+q.count)%len(q.items)] = item
	q.count++
	q.size += q.weight(item)
	q.notEmpty.Signal()
	return nil
}

// Pop removes and returns the head item, blocking while the queue is
// empty and still open. Once the queue is closed, remaining items are
// still delivered in order; after the last one, Pop returns ErrClosed.
func (q *Queue[T]) Pop() (T, error) {
	q.locker.Lock()
	defer q.locker.Unlock()
	for q.count == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	var zero T
	if q.count == 0 {
		return zero, ErrClosed
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	q.size -= q.weight(item)
	q.notFull.Signal()
	return item, nil
}

// Close marks the queue closed and broadcasts to every blocked waiter,
// so producers fail fast and consumers can drain and unwind. It is
// idempotent and safe to call from any goroutine.
func (q *Queue[T]) Close() {
	q.locker.Lock()
	defer q.locker.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Drain closes the queue and releases everything still buffered.
func (q *Queue[T]) Drain(release func(T)) {
	q.Close()
	for {
		item, err := q.Pop()
		if err != nil {
			return
		}
		if release != nil {
			release(item)
		}
	}
}

func (q *Queue[T]) IsClosed() bool {
	q.locker.Lock()
	defer q.locker.Unlock()
	return q.closed
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int {
	q.locker.Lock()
	defer q.locker.Unlock()
	return q.count
}

// Size reports the accumulated weight of the buffered items.
func (q *Queue[T]) Size() int {
	q.locker.Lock()
	defer q.locker.Unlock()
	return q.size
}

func (q *Queue[T]) Cap() int {
	return len(q.items)
}
