package resilience

import (
	"context"
	"log"
	"time"
)

// Pool retry defaults.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// RetryPolicy runs an operation up to Attempts times with a fixed Delay between
// attempts. There is no backoff and no jitter.
//
// Retryable decides whether a failed attempt may be repeated. A nil Retryable
// retries every error.
type RetryPolicy struct {
	Name      string
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
}

// DefaultRetryPolicy retries every error 3 times, 1s apart.
func DefaultRetryPolicy(name string) RetryPolicy {
	return RetryPolicy{Name: name, Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Do executes op until it succeeds, the attempts are exhausted, or the error is
// not retryable, and returns the last error seen. Attempts never overlap. A
// cancelled ctx stops the wait between attempts and returns the last error.
func Do[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("[Retry] %s: attempt %d/%d failed: %v", p.Name, i+1, attempts, err)

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, lastErr
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		}
	}
	return zero, lastErr
}
