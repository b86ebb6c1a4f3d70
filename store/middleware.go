package store

// API is the capability handed to each middleware constructor.
type API[S any] struct {
	store *Store[S]
}

// GetState returns the store's current state.
func (a API[S]) GetState() S {
	return a.store.GetState()
}

// Dispatch feeds an action back through the whole pipeline. Thunks are
// invoked immediately with the outer dispatch, so a middleware can emit
// deferred work without knowing its position in the chain.
func (a API[S]) Dispatch(action Action) any {
	return a.store.Dispatch(action)
}

// Middleware wraps the dispatch pipeline. The constructor runs once at
// store construction; the function it returns receives the next
// dispatcher and returns this layer's.
type Middleware[S any] func(api API[S]) func(next Dispatcher) Dispatcher

// compose builds the effective dispatcher. Constructors run first, then
// the wrappers fold right to left onto the base dispatcher, which gives
// the first-registered middleware the outermost position.
func (s *Store[S]) compose(middlewares []Middleware[S]) Dispatcher {
	if len(middlewares) == 0 {
		return s.reduce
	}

	// Constructors must not dispatch before the chain exists.
	s.dispatch = func(Action) any {
		panic(ErrDispatchBeforeReady)
	}

	api := API[S]{store: s}
	wraps := make([]func(Dispatcher) Dispatcher, 0, len(middlewares))
	for _, m := range middlewares {
		if m == nil {
			continue
		}
		if wrap := m(api); wrap != nil {
			wraps = append(wraps, wrap)
		}
	}

	d := Dispatcher(s.reduce)
	for i := len(wraps) - 1; i >= 0; i-- {
		if layer := wraps[i](d); layer != nil {
			d = layer
		}
	}
	return d
}
