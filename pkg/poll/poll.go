// Package poll provides the single wait primitive used by every bounded
// wait on the page: evaluate a condition, sleep, repeat until it holds or
// the deadline passes.
package poll

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is the pause between two evaluations of a condition.
const DefaultInterval = 100 * time.Millisecond

var ErrTimeout = errors.New("timed out")

// Condition reports whether the awaited state has been reached. A non-nil
// error aborts the wait immediately.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond every DefaultInterval until it returns true, an error,
// the context ends, or timeout elapses. The deadline is armed once at entry.
func Until(ctx context.Context, timeout time.Duration, cond Condition) error {
	return UntilEvery(ctx, timeout, DefaultInterval, cond)
}

// UntilEvery is Until with an explicit interval.
func UntilEvery(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	expired := time.NewTimer(timeout)
	defer expired.Stop()

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}

		if ok {
			return nil
		}

		select {
		case <-expired.C:
			return ErrTimeout
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		select {
		case <-expired.C:
			return ErrTimeout
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Sleep waits for d or until ctx ends.
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
