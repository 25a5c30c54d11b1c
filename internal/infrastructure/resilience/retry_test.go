package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{Name: "test", Attempts: 3, Delay: time.Millisecond}
}

func TestDo_FailsEveryAttempt(t *testing.T) {
	calls := 0
	errs := []error{errors.New("first"), errors.New("second"), errors.New("third")}

	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		e := errs[calls]
		calls++
		return 0, e
	})

	assert.Equal(t, 3, calls)
	assert.EqualError(t, err, "third")
}

func TestDo_SucceedsOnSecondAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestDo_WaitsFixedDelayBetweenAttempts(t *testing.T) {
	p := fastPolicy()
	p.Delay = 20 * time.Millisecond

	start := time.Now()
	_, _ = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("down")
	})

	// two waits between three attempts
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestDo_StopsOnNonRetryableError(t *testing.T) {
	syntax := errors.New("syntax error")
	p := fastPolicy()
	p.Retryable = func(err error) bool { return !errors.Is(err, syntax) }

	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, syntax
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, syntax)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	p := fastPolicy()
	p.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("down")
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.EqualError(t, err, "down")
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), RetryPolicy{}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("x")
	})
	assert.Equal(t, 1, calls)
}
