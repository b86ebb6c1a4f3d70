package store

// Action is a value the store can dispatch. The two variants are the
// tagged Plain record and the deferred Thunk.
type Action interface {
	Action()
}

// Plain is a tagged action value.
type Plain struct {
	Kind    string
	Payload any
}

func (Plain) Action() {}

// Context gives a thunk access to the store it was dispatched into.
// Dispatch re-enters the full pipeline.
type Context[S any] struct {
	Dispatch Dispatcher
	GetState func() S
}

// Thunk defers work that may dispatch further actions, now or later. The
// callable may block or hand work to another goroutine; every nested
// dispatch is an independent pass through the pipeline and is subject to
// the same equality suppression as any other.
type Thunk[S any] func(Context[S]) any

func (Thunk[S]) Action() {}
