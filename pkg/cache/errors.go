package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	wterrors "github.com/matzehuels/wiretree/pkg/errors"
)

// ErrNetwork is returned when a remote cache backend cannot be reached.
var ErrNetwork = errors.New("network error")

// Unavailable wraps a failed call to a remote backend as a retryable
// NETWORK_ERROR, or TIMEOUT when err is a deadline or network timeout. The
// result matches ErrNetwork. Cancellation by the caller is returned as is.
func Unavailable(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if isTimeout(err) {
		return TimedOut(op, err)
	}
	return Retryable(wterrors.Wrap(wterrors.ErrCodeNetwork, fmt.Errorf("%w: %w", ErrNetwork, err), "%s", op))
}

// TimedOut wraps a backend call that ran out of time as a retryable TIMEOUT
// matching ErrNetwork.
func TimedOut(op string, err error) error {
	if err == nil {
		return nil
	}
	return Retryable(wterrors.Wrap(wterrors.ErrCodeTimeout, fmt.Errorf("%w: %w", ErrNetwork, err), "%s", op))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

// Retryable wraps an error as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Error returns the error message of the wrapped error.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is wrapped with RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryDelay is the wait before the first retry in [RetryWithBackoff].
// It doubles after each attempt.
var RetryDelay = time.Second

// RetryWithBackoff retries fn up to 3 times with exponential backoff.
// Only errors wrapped with Retryable will trigger retries.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	const attempts = 3
	delay := RetryDelay
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
