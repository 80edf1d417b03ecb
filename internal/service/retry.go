package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// Retrier re-runs operations that fail with model.ErrUpstreamUnavailable.
// The zero value runs each operation once.
type Retrier struct {
	attempts uint64
	initial  time.Duration
	max      time.Duration
}

// NewRetrier returns a Retrier making at most attempts calls.
func NewRetrier(attempts int, initial time.Duration) Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	return Retrier{attempts: uint64(attempts), initial: initial, max: 2 * time.Second}
}

// Do calls fn until it succeeds, fails with a non-retryable error, the
// attempts run out, or ctx is done.
func (r Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.attempts <= 1 {
		return fn(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.max
	b.MaxElapsedTime = 0

	op := func() error {
		err := fn(ctx)
		if err == nil || errors.Is(err, model.ErrUpstreamUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, r.attempts-1), ctx))
}
