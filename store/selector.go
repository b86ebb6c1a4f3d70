package store

import "sync"

// Selector derives a value from a store's state and notifies its own
// subscribers only when the derived value changes. A binding layer
// typically keys re-render work off a selector rather than the full
// state.
type Selector[S, T any] struct {
	mu    sync.Mutex
	value T
	sel   func(S) T
	equal EqualFunc[T]
	subs  map[int]listener[T]
	next  int
	unsub func()
}

// Select creates a selector over st that recomputes synchronously on
// every accepted transition.
func Select[S, T any](st *Store[S], sel func(S) T) *Selector[S, T] {
	return SelectWithScheduler(nil, st, sel)
}

// SelectWithScheduler creates a selector whose recomputes run through
// scheduler. A nil scheduler recomputes synchronously.
func SelectWithScheduler[S, T any](scheduler Scheduler, st *Store[S], sel func(S) T) *Selector[S, T] {
	if sel == nil {
		sel = func(S) T {
			var zero T
			return zero
		}
	}
	c := &Selector[S, T]{
		sel:   sel,
		equal: Structural[T],
	}
	if st != nil {
		c.value = sel(st.GetState())
		c.unsub = st.SubscribeWithScheduler(scheduler, c.recompute)
	}
	return c
}

// SetEqualFunc configures the derived-value comparison. The default is
// structural equality; selectors producing comparable values usually
// want EqualComparable.
func (c *Selector[S, T]) SetEqualFunc(fn EqualFunc[T]) {
	if c == nil || fn == nil {
		return
	}
	c.mu.Lock()
	c.equal = fn
	c.mu.Unlock()
}

// Get returns the current derived value.
func (c *Selector[S, T]) Get() T {
	if c == nil {
		var zero T
		return zero
	}
	c.mu.Lock()
	value := c.value
	c.mu.Unlock()
	return value
}

// Subscribe registers a listener for derived-value changes. The returned
// function removes the listener and is safe to call more than once.
func (c *Selector[S, T]) Subscribe(fn func(T)) func() {
	return c.SubscribeWithScheduler(nil, fn)
}

// SubscribeWithScheduler registers a listener whose invocations are
// handed to scheduler. A nil scheduler delivers synchronously.
func (c *Selector[S, T]) SubscribeWithScheduler(scheduler Scheduler, fn func(T)) func() {
	if c == nil || fn == nil {
		return func() {}
	}
	c.mu.Lock()
	if c.subs == nil {
		c.subs = make(map[int]listener[T])
	}
	id := c.next
	c.next++
	c.subs[id] = listener[T]{fn: fn, scheduler: scheduler}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Stop detaches the selector from its store. The last derived value
// stays readable through Get.
func (c *Selector[S, T]) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *Selector[S, T]) recompute(state S) {
	next := c.sel(state)
	c.mu.Lock()
	if c.equal != nil && c.equal(c.value, next) {
		c.mu.Unlock()
		return
	}
	c.value = next
	subs := make([]listener[T], 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		if sub.fn == nil {
			continue
		}
		if sub.scheduler == nil {
			sub.fn(next)
			continue
		}
		fn := sub.fn
		sub.scheduler.Schedule(func() { fn(next) })
	}
}
