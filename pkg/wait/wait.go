// Package wait provides a context-aware polling primitive used wherever the
// fetcher has to block on an external condition: challenge widgets, post-login
// markers and in-progress downloads.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every error returned when a poll runs out of time.
var ErrTimeout = errors.New("timed out waiting for condition")

// DefaultInterval is used when Options.Interval is zero.
const DefaultInterval = time.Second

// Options configures a poll.
type Options struct {
	// InitialDelay is slept once before the first check
	InitialDelay time.Duration

	// Interval is the pause between two checks
	Interval time.Duration

	// Timeout bounds the whole poll, measured after InitialDelay.
	// Zero means no bound other than the context.
	Timeout time.Duration
}

// Condition reports whether the awaited state has been reached.
// A returned error is remembered and the poll continues, unless the error
// was wrapped with Permanent.
type Condition func(ctx context.Context) (bool, error)

// TimeoutError is returned when the condition did not hold in time.
type TimeoutError struct {
	Timeout time.Duration
	// Last is the most recent error returned by the condition, if any
	Last error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("condition not met within %s (last error: %v)", e.Timeout, e.Last)
	}
	return fmt.Sprintf("condition not met within %s", e.Timeout)
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as fatal: Until returns it immediately instead of
// retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Until polls cond until it returns true, the timeout elapses or ctx is done.
func Until(ctx context.Context, opts Options, cond Condition) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	if err := Sleep(ctx, opts.InitialDelay); err != nil {
		return err
	}

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	var last error
	for {
		ok, err := cond(ctx)
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return perm.err
			}
			last = err
		} else if ok {
			return nil
		}

		pause := opts.Interval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return &TimeoutError{Timeout: opts.Timeout, Last: last}
			}
			if remaining < pause {
				pause = remaining
			}
		}

		if err := Sleep(ctx, pause); err != nil {
			return err
		}
	}
}

// Sleep pauses for d or until ctx is done, whichever comes first.
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
