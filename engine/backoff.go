package engine

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Backoff defaults.
const (
	DefaultBaseDelay  = 1 * time.Second
	DefaultRoundStep  = 10 * time.Second
	DefaultMaxRetries = 3
)

// IntraCallDelay is the wait after the attempt-th failure of a single
// operation: base × 2^(attempt−1), saturating at the largest Duration.
// Attempts count from 1.
func IntraCallDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		return 0
	}
	shift := uint(attempt - 1)
	if shift >= 63 || base > time.Duration(math.MaxInt64)>>shift {
		return time.Duration(math.MaxInt64)
	}
	return base << shift
}

// InterRoundDelay is the wait after a failed round: round × step.
// Rounds count from 1.
func InterRoundDelay(step time.Duration, round int) time.Duration {
	if round < 1 {
		round = 1
	}
	return time.Duration(round) * step
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry runs fn up to maxRetries times, sleeping IntraCallDelay(base, k)
// after the k-th failure. The last error is returned once retries are
// exhausted. A cancelled ctx stops the loop immediately.
func Retry(ctx context.Context, sleep SleepFunc, maxRetries int, base time.Duration, op string, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == maxRetries {
			break
		}
		delay := IntraCallDelay(base, attempt)
		slog.Debug("retrying operation",
			"op", op, "attempt", attempt, "delay", delay, "error", lastErr)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}
