package executor

import (
	"context"
	"errors"
	"time"

	"github.com/ddimaraki/bulwark/internal/backoff"
)

// ErrDeadlineExceeded is returned for an attempt that outlives its
// per-attempt timeout. The abandoned attempt keeps running until its
// context cancels it; whatever it eventually returns is discarded.
var ErrDeadlineExceeded = errors.New("attempt deadline exceeded")

var (
	ErrInvalidRetries = errors.New("retries must be at least 1")
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// Func is a single attempt. It should honor ctx so an abandoned
// attempt stops doing work once its deadline passes.
type Func func(ctx context.Context) (any, error)

// Options tune one resilient call.
//
// Retries is the total number of attempts, not the number of retries
// after the first one. Backoff schedules the wait between consecutive
// attempts; nil never waits. Timeout bounds every attempt separately.
// Fallback, when set, absorbs the terminal failure.
type Options struct {
	Retries  int
	Backoff  backoff.Strategy
	Timeout  time.Duration
	Fallback func(ctx context.Context) (any, error)
}

func (o Options) Validate() error {
	if o.Retries < 1 {
		return ErrInvalidRetries
	}

	if o.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}

// Run executes fn under the given options: up to Retries attempts,
// each with its own deadline, separated by the backoff schedule. After
// the final attempt fails the fallback is consulted; without one the
// last error is returned. Cancelling ctx aborts the whole call
// immediately, fallback included.
func Run(ctx context.Context, fn Func, opts Options) (any, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	strategy := opts.Backoff
	if strategy == nil {
		strategy = backoff.NewConstantStrategy(0)
	}

	var lastErr error

	for attempt := 0; attempt < opts.Retries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, strategy.Delay(attempt-1)); err != nil {
				return nil, err
			}
		}

		value, err := runAttempt(ctx, fn, opts.Timeout)
		if err == nil {
			return value, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if opts.Fallback != nil {
		return opts.Fallback(ctx)
	}

	return nil, lastErr
}

func runAttempt(ctx context.Context, fn Func, timeout time.Duration) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}

	// Buffered so an abandoned attempt can finish and exit without a
	// reader.
	done := make(chan outcome, 1)

	go func() {
		value, err := fn(attemptCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrDeadlineExceeded
		}

		return nil, attemptCtx.Err()
	}
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
