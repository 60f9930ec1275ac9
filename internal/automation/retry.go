package automation

import (
	"context"
	"time"
)

// RetryPolicy bounds retries of calls the automation server rejects while busy.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy retries a rejected call for about ten seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 20, Delay: 500 * time.Millisecond}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
