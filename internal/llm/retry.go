package llm

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryPolicy bounds how rate-limited calls are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	// Backoff is the fixed wait between attempts.
	Backoff time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 5 second backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     5 * time.Second,
	}
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default WaitFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// run calls p.Complete until it succeeds, fails with a non rate-limit error,
// or runs out of attempts. It waits only between attempts.
func (rp RetryPolicy) run(ctx context.Context, p Provider, prompt string, wait WaitFunc) (string, error) {
	attempts := rp.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := p.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if !IsRateLimited(err) {
			return "", err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		log.Printf("[llm] %s rate limited (attempt %d/%d), backing off %s", p.Name(), attempt, attempts, rp.Backoff)
		if err := wait(ctx, rp.Backoff); err != nil {
			return "", err
		}
	}

	log.Printf("[llm] %s: giving up after %d rate-limited attempts", p.Name(), attempts)
	return "", fmt.Errorf("%s: %w: %w", p.Name(), ErrRetriesExhausted, lastErr)
}
