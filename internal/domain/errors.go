package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyRunning reports that a live instance holds the run's lock.
var ErrAlreadyRunning = errors.New("run already in progress")

// RateLimitError signals the remote API told us to back off. Retried without
// bound: the remote guarantees eventual availability.
type RateLimitError struct {
	RetryAfter time.Duration // zero when the API gave no hint
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// TransientError wraps a failure worth retrying, such as a network fault or a
// 5xx response. Retries are bounded.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable but not a rate-limit signal.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
