package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 1000 * time.Millisecond
)

// SleepFunc suspends the current call for d. It returns early with the context
// error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	MaxAttempts int
	Delay       time.Duration // initial delay, doubled after every failed attempt

	// Sleep defaults to a timer-based wait. Tests replace it to avoid real waits.
	Sleep SleepFunc
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig returns 3 attempts with a 1s initial delay.
func DefaultConfig() Config {
	return Config{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Backoff returns the wait after the zero-based attempt: initial * 2^attempt.
func Backoff(initial time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return initial * time.Duration(1<<uint(attempt))
}

// Do runs op up to cfg.MaxAttempts times, sequentially. When every attempt
// fails the error of the last attempt is returned as is.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		wait := Backoff(cfg.Delay, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// WithRetry is Do for operations that only report an error.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	_, err := Do(ctx, cfg, func(context.Context) (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
