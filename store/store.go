// Package store provides a predictable state container: a single state
// cell updated through a pure reducer, observed by subscribers, with
// structurally equal transitions suppressed and an optional composable
// middleware pipeline in front of dispatch.
package store

import (
	"errors"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/odvcencio/burrow/equality"
)

// Dispatch misuse errors. Both mark violated invariants, not recoverable
// conditions, and are delivered via panic.
var (
	// ErrDispatchBeforeReady means a middleware constructor dispatched
	// while the pipeline was still being composed.
	ErrDispatchBeforeReady = errors.New("store: dispatch before middleware composition finished")
	// ErrDispatchInReducer means the store was re-entered while a
	// reduction was already in progress on the same call stack.
	ErrDispatchInReducer = errors.New("store: dispatch during reduction")
)

// Dispatcher processes one action and returns that action's result.
type Dispatcher func(Action) any

// Reducer computes the next state from the current state and an action.
// It must not mutate its first argument; a changed result replaces the
// state wholesale.
type Reducer[S any] func(S, Action) S

// EqualFunc compares two values for equality.
type EqualFunc[T any] func(a, b T) bool

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

// Structural compares values with the equality package.
func Structural[T any](a, b T) bool {
	return equality.Equal(a, b)
}

type listener[S any] struct {
	fn        func(S)
	scheduler Scheduler
}

// Store owns one state cell. Each New call yields an independent
// instance; instances share nothing.
type Store[S any] struct {
	mu        sync.Mutex
	state     S
	reducer   Reducer[S]
	equal     EqualFunc[S]
	listeners map[int]listener[S]
	next      int
	dispatch  Dispatcher

	// reduceMu serializes reductions across goroutines; owner holds the
	// id of the goroutine currently reducing so that same-stack re-entry
	// can panic instead of deadlocking.
	reduceMu sync.Mutex
	owner    atomic.Uint64
}

// New creates a store with an initial state and an optional middleware
// chain. Middlewares compose left to right: the first sees every dispatch
// first on the way in and last on the way out.
func New[S any](reducer Reducer[S], initial S, middlewares ...Middleware[S]) *Store[S] {
	if reducer == nil {
		reducer = func(s S, _ Action) S { return s }
	}
	s := &Store[S]{
		state:   initial,
		reducer: reducer,
		equal:   Structural[S],
	}
	s.dispatch = s.compose(middlewares)
	return s
}

// SetEqualFunc configures the comparison used to suppress no-op
// transitions. The default is structural equality; comparable state
// types can use EqualComparable instead.
func (s *Store[S]) SetEqualFunc(fn EqualFunc[S]) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	s.equal = fn
	s.mu.Unlock()
}

// GetState returns the current state.
func (s *Store[S]) GetState() S {
	if s == nil {
		var zero S
		return zero
	}
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return state
}

// Dispatch runs an action through the middleware chain and the reducer.
// A Thunk is invoked immediately with the store's outer dispatch and its
// return value becomes Dispatch's return value. Plain actions reduce
// synchronously: when Dispatch returns, listeners for an accepted
// transition have already run.
func (s *Store[S]) Dispatch(a Action) any {
	if s == nil {
		return nil
	}
	if t, ok := a.(Thunk[S]); ok {
		if t == nil {
			return nil
		}
		return t(Context[S]{Dispatch: s.Dispatch, GetState: s.GetState})
	}
	return s.dispatch(a)
}

// Subscribe registers a listener invoked with the new state after each
// accepted transition. The returned function removes the listener and is
// safe to call more than once.
func (s *Store[S]) Subscribe(fn func(S)) func() {
	return s.SubscribeWithScheduler(nil, fn)
}

// SubscribeWithScheduler registers a listener whose invocations are
// handed to scheduler. A nil scheduler delivers synchronously.
func (s *Store[S]) SubscribeWithScheduler(scheduler Scheduler, fn func(S)) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[int]listener[S])
	}
	id := s.next
	s.next++
	s.listeners[id] = listener[S]{fn: fn, scheduler: scheduler}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// reduce is the base dispatcher: reducer, equality check, swap, fan-out.
// Dispatches from other goroutines wait their turn; a dispatch issued
// from inside the active reducer call on the same stack is fatal.
func (s *Store[S]) reduce(a Action) any {
	gid := goroutineID()
	if gid != 0 && s.owner.Load() == gid {
		panic(ErrDispatchInReducer)
	}
	s.reduceMu.Lock()
	s.owner.Store(gid)

	released := false
	release := func() {
		if !released {
			released = true
			s.owner.Store(0)
			s.reduceMu.Unlock()
		}
	}
	// A panicking reducer must release the guard and leave the prior
	// state in place.
	defer release()

	s.mu.Lock()
	prev := s.state
	equal := s.equal
	s.mu.Unlock()

	next := s.reducer(prev, a)
	if equal != nil && equal(prev, next) {
		return nil
	}

	s.mu.Lock()
	s.state = next
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	// Listeners may dispatch again; the reduction is over once the swap
	// is done.
	release()

	slices.Sort(ids)
	s.notify(ids, next)
	return nil
}

// goroutineID extracts the current goroutine's id from its stack header
// ("goroutine 123 [running]:"). Returns 0 when the header cannot be
// parsed, which disables only the same-stack check.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	i := strings.IndexByte(header, ' ')
	if i <= 0 {
		return 0
	}
	id, err := strconv.ParseUint(header[:i], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// notify fans the new state out to listeners registered at swap time,
// re-checking liveness per listener so an unsubscribe that lands before
// a listener's turn is honored within the same pass.
func (s *Store[S]) notify(ids []int, state S) {
	for _, id := range ids {
		s.mu.Lock()
		l, ok := s.listeners[id]
		s.mu.Unlock()
		if !ok || l.fn == nil {
			continue
		}
		if l.scheduler == nil {
			l.fn(state)
			continue
		}
		fn := l.fn
		l.scheduler.Schedule(func() { fn(state) })
	}
}
