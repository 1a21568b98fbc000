// Package retry provides an explicit retry policy for I/O at collaborator boundaries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTransient marks a failure that may succeed on another attempt
// (network errors, timeouts, 5xx responses).
var ErrTransient = errors.New("transient failure")

// ErrExhausted is returned when every attempt failed with a transient error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Transient wraps err so that Policy.Do retries it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Backoff returns the delay before the given attempt (1-based, attempt >= 2).
type Backoff func(attempt int) time.Duration

// Constant waits d between every attempt.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Linear waits base, 2*base, 3*base...
func Linear(base time.Duration) Backoff {
	return func(attempt int) time.Duration { return time.Duration(attempt-1) * base }
}

// Exponential doubles base each attempt, capped at max.
func Exponential(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 2; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return d
	}
}

// Policy bounds how many times an operation runs and how long to wait in between.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff

	// OnRetry is called before sleeping for the next attempt. Optional.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do runs op until it succeeds, returns a non-transient error, ctx is done,
// or MaxAttempts is reached.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(0)
			if p.Backoff != nil {
				wait = p.Backoff(attempt)
			}
			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr, wait)
			}
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("%w: %w", err, lastErr)
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
