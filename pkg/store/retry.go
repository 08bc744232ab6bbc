package store

import (
	"context"
	"errors"
	"time"
)

// Backoff for the network backends: three tries, one second apart at
// first, doubling after each failure.
const (
	retryAttempts = 3
	retryWait     = time.Second
)

// transientError marks a backend failure that may succeed on another try,
// such as a refused connection or a reset socket.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// transient marks err as worth retrying. A nil error stays nil.
func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// retry calls fn with the backend backoff.
func retry(ctx context.Context, fn func() error) error {
	return retryN(ctx, retryAttempts, retryWait, fn)
}

// retryN calls fn up to n times. Only errors marked with transient are
// retried; anything else is returned at once, and so is ctx.Err() if the
// context ends while waiting.
func retryN(ctx context.Context, n int, wait time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil || !isTransient(err) {
			return err
		}
		if i == n-1 {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
	return err
}
