// Package wait implements bounded polling and fixed settle delays.
package wait

import (
	"context"
	"errors"
	"time"

	"github.com/mj1618/gridcheck/internal/failure"
)

// Condition reports whether the awaited state holds. A returned error is
// remembered and reported if the wait times out, but does not stop polling.
type Condition func(ctx context.Context) (bool, error)

// Options bounds a poll loop.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

const defaultInterval = 250 * time.Millisecond

// Until polls cond until it holds or the timeout elapses. The condition is
// always evaluated at least once. On timeout it returns a *failure.TimeoutError
// described by what.
func Until(ctx context.Context, opts Options, what string, cond Condition) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	deadline := time.Now().Add(opts.Timeout)
	var lastErr error

	for {
		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		if !time.Now().Before(deadline) {
			return &failure.TimeoutError{Condition: what, After: opts.Timeout, Last: lastErr}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Absence configures a wait for something to disappear.
type Absence struct {
	Options
	// TimeoutIsSuccess makes an expired wait return nil. Leave it false when
	// the element still being present is a failure.
	TimeoutIsSuccess bool
}

// Gone waits until present reports false. The timeout outcome is decided by
// abs.TimeoutIsSuccess, not by the error kind.
func Gone(ctx context.Context, abs Absence, what string, present Condition) error {
	err := Until(ctx, abs.Options, what+" to disappear", func(ctx context.Context) (bool, error) {
		ok, err := present(ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil
	})
	if err == nil {
		return nil
	}
	var te *failure.TimeoutError
	if errors.As(err, &te) && abs.TimeoutIsSuccess {
		return nil
	}
	return err
}

// Settle sleeps for d unless ctx is cancelled first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
