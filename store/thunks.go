package store

import (
	"context"
	"time"
)

// After returns a thunk that dispatches action once delay has elapsed.
// The wait runs on its own goroutine; the thunk returns a channel that
// closes when the wait ends. Cancelling ctx abandons the dispatch. A
// non-positive delay dispatches synchronously.
func After[S any](ctx context.Context, delay time.Duration, action Action) Thunk[S] {
	return func(tc Context[S]) any {
		if action == nil || tc.Dispatch == nil {
			return nil
		}
		if delay <= 0 {
			return tc.Dispatch(action)
		}
		if ctx == nil {
			ctx = context.Background()
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
				tc.Dispatch(action)
			}
		}()
		return done
	}
}

// Every returns a thunk that dispatches fn's action on a fixed interval
// until ctx is done. Returning nil from fn skips that tick. The returned
// channel closes once the loop stops.
func Every[S any](ctx context.Context, interval time.Duration, fn func(time.Time) Action) Thunk[S] {
	return func(tc Context[S]) any {
		if interval <= 0 || fn == nil || tc.Dispatch == nil {
			return nil
		}
		if ctx == nil {
			ctx = context.Background()
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					if action := fn(now); action != nil {
						tc.Dispatch(action)
					}
				}
			}
		}()
		return done
	}
}
