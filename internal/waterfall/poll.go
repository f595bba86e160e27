package waterfall

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
)

// ErrPollExhausted is returned when a job never completed within the
// configured number of polls.
var ErrPollExhausted = errors.New("waterfall: poll attempts exhausted")

// PollConfig is a fixed-interval polling schedule.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// CheckFunc reports whether an async job finished. A check error counts as
// "not yet" and polling continues.
type CheckFunc[T any] func(ctx context.Context) (T, bool, error)

// Poll waits Interval before each check, up to MaxAttempts checks.
func Poll[T any](ctx context.Context, cfg PollConfig, check CheckFunc[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, eris.Wrap(ctx.Err(), "waterfall: poll cancelled")
		case <-time.After(cfg.Interval):
		}

		v, done, err := check(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if done {
			return v, nil
		}
	}

	if lastErr != nil {
		return zero, eris.Wrapf(ErrPollExhausted, "after %d attempts, last error: %v", cfg.MaxAttempts, lastErr)
	}
	return zero, eris.Wrapf(ErrPollExhausted, "after %d attempts", cfg.MaxAttempts)
}
