// Package chflow provides context-aware helpers for channel sends and
// receives, so blocking channel operations always respect cancellation.
package chflow

import "context"

// Receive waits for a value from ch or for ctx to be canceled. It returns the
// received value and true on success, or the zero value and false when ctx is
// done or the channel is closed.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	var data T
	select {
	case <-ctx.Done():
		return data, false
	case data, ok := <-ch:
		return data, ok
	}
}

// Send delivers data to ch unless ctx is canceled first. It reports whether
// the send happened.
func Send[T any](ctx context.Context, ch chan<- T, data T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- data:
		return true
	}
}

// TrySend delivers data to ch only if the channel has capacity right now. It
// never blocks and reports whether the send happened.
func TrySend[T any](ch chan<- T, data T) bool {
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}
