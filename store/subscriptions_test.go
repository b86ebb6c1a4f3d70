package store

import "testing"

func TestSubscriptions_ClearUnsubscribesAll(t *testing.T) {
	st := New(counterReducer, counter{})
	subs := NewSubscriptions()

	calls := 0
	subs.Add(st.Subscribe(func(counter) { calls++ }))
	subs.Add(st.Subscribe(func(counter) { calls++ }))
	subs.Add(nil)

	st.Dispatch(Plain{Kind: "inc"})
	if calls != 2 {
		t.Fatalf("expected 2 calls before clear, got %d", calls)
	}

	subs.Clear()
	st.Dispatch(Plain{Kind: "inc"})
	if calls != 2 {
		t.Fatalf("expected no calls after clear, got %d", calls)
	}

	// Clearing twice is harmless.
	subs.Clear()
}
