package store

import "sync"

// Subscriptions tracks unsubscribe callbacks so a binding layer can
// release everything it watches in one call.
type Subscriptions struct {
	mu     sync.Mutex
	unsubs []func()
}

// NewSubscriptions creates an empty tracker.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{}
}

// Add registers an unsubscribe callback.
func (s *Subscriptions) Add(unsub func()) {
	if s == nil || unsub == nil {
		return
	}
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
}

// Clear runs and forgets all tracked callbacks.
func (s *Subscriptions) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}
