package store

import "sync"

// Scheduler defers listener invocations handed to it by the store.
// Synchronous delivery needs no Scheduler at all: subscribing with a nil
// scheduler runs listeners on the dispatching goroutine.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(func())

// Schedule hands fn to the wrapped function.
func (f SchedulerFunc) Schedule(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// Async runs each callback on its own goroutine, decoupling listeners
// from the dispatch that triggered them.
type Async struct{}

// Schedule runs fn asynchronously.
func (Async) Schedule(fn func()) {
	if fn == nil {
		return
	}
	go fn()
}

// Queue batches callbacks until an explicit Flush, letting a binding
// layer coalesce the deliveries of several dispatches into one pass,
// typically once per frame.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule enqueues fn for the next Flush.
func (q *Queue) Schedule(fn func()) {
	if q == nil || fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Len returns the number of callbacks waiting for a Flush.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	n := len(q.pending)
	q.mu.Unlock()
	return n
}

// Flush runs the callbacks queued so far, in order, and returns how many
// ran. Callbacks scheduled while a flush is running wait for the next
// one.
func (q *Queue) Flush() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}
