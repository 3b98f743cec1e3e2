package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RunWithRetry wraps a fetch with bounded retry and exponential backoff.
// Delays follow base * 2^(attempt-1) with no jitter; after maxRetries failed
// retries (maxRetries+1 attempts in total) the last error is returned.
func (f *Fetcher) RunWithRetry(ctx context.Context, fd Descriptor, maxRetries int, backoffBase time.Duration) ([]Entry, error) {
	b := newRetryBackOff(backoffBase, maxRetries)

	var entries []Entry
	attempt := 0

	operation := func() error {
		attempt++
		result, err := f.Run(ctx, fd)
		if err != nil {
			return err
		}
		entries = result
		return nil
	}

	notify := func(err error, delay time.Duration) {
		slog.Warn("Feed fetch failed, retrying",
			"feed", fd.URL,
			"attempt", attempt,
			"backoff", delay.String(),
			"error", err)
	}

	wrapped := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
	if err := backoff.RetryNotify(operation, wrapped, notify); err != nil {
		return nil, err
	}

	return entries, nil
}

func newRetryBackOff(base time.Duration, maxRetries int) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	// The longest delay in the schedule is base * 2^(maxRetries-1); lift the
	// default 60s interval cap so the doubling is never clamped.
	shift := maxRetries - 1
	if shift < 0 {
		shift = 0
	} else if shift > 32 {
		shift = 32
	}
	b.MaxInterval = base << uint(shift)

	return b
}
