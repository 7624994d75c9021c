package recommend

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first. Tests
// substitute a recording fake so retry behavior runs without real timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy drives the attempt loop around the network call: how many
// attempts, how long to wait between them, and how waiting happens.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       SleepFunc
}

// DefaultRetryPolicy matches the service defaults: three attempts with
// exponential backoff of 2^attempt seconds (2s, 4s) between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff,
		Sleep:       ContextSleep,
	}
}

// ExponentialBackoff returns 2^attempt seconds for attempt 1, 2, ...
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// ContextSleep blocks for d unless ctx finishes first.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds or attempts are exhausted, sleeping the
// backoff delay between failures. It returns the number of attempts made
// and the last error. Cancellation of ctx stops the loop immediately and
// surfaces ctx.Err, both mid-attempt and mid-sleep.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if attempt < p.MaxAttempts {
			if err := p.Sleep(ctx, p.Backoff(attempt)); err != nil {
				return attempt, err
			}
		}
	}
	return p.MaxAttempts, lastErr
}
