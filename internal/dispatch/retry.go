package dispatch

import (
	"errors"
	"time"

	"chatbridge/internal/chaterr"
)

const maxBackoff = 30 * time.Second

// RetryPolicy decides whether a failed attempt is repeated. attempt counts
// the attempts made so far, starting at 1.
type RetryPolicy interface {
	Backoff(attempt int, err error) (time.Duration, bool)
}

// RetryFunc adapts a function to RetryPolicy.
type RetryFunc func(attempt int, err error) (time.Duration, bool)

func (f RetryFunc) Backoff(attempt int, err error) (time.Duration, bool) {
	return f(attempt, err)
}

type exponentialRetry struct {
	retries int
	base    time.Duration
}

// NewRetryPolicy retries up to retries extra times with exponential backoff
// starting at base. Only transient kinds are retried: network errors, rate
// limiting and server errors.
func NewRetryPolicy(retries int, base time.Duration) RetryPolicy {
	return exponentialRetry{retries: retries, base: base}
}

func (p exponentialRetry) Backoff(attempt int, err error) (time.Duration, bool) {
	if attempt > p.retries || !Retryable(err) {
		return 0, false
	}
	d := p.base
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff), true
}

// Retryable reports whether err is a transient dispatch failure. Server
// errors count only for 5xx statuses.
func Retryable(err error) bool {
	var e *chaterr.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case chaterr.KindNetworkError, chaterr.KindRateLimitExceeded:
		return true
	case chaterr.KindServerError:
		return e.StatusCode == 0 || e.StatusCode >= 500
	default:
		return false
	}
}
