// Package worker holds the background loops that run next to the HTTP
// server: the booking expiry consumer and the outbox relay.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/messaging"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// ExpirySource delivers due booking expiries.
type ExpirySource interface {
	ConsumeExpiries(ctx context.Context, fn messaging.ExpiryHandler) error
}

// Expirer releases an unpaid booking.
type Expirer interface {
	Expire(ctx context.Context, bookingID string) (bool, error)
}

// ExpiryConsumer expires bookings as their delayed messages arrive.
type ExpiryConsumer struct {
	source  ExpirySource
	expirer Expirer
	log     zerolog.Logger

	retryInitial time.Duration
	retryMax     time.Duration
}

// NewExpiryConsumer constructs an ExpiryConsumer.
func NewExpiryConsumer(source ExpirySource, expirer Expirer, log zerolog.Logger) *ExpiryConsumer {
	return &ExpiryConsumer{
		source:  source,
		expirer: expirer,
		log:     log.With().Str("worker", "expiry").Logger(),

		retryInitial: time.Second,
		retryMax:     30 * time.Second,
	}
}

// Run consumes until ctx is done. When the source reports
// model.ErrUpstreamUnavailable the consumer waits and subscribes again;
// any other error ends the run.
func (c *ExpiryConsumer) Run(ctx context.Context) error {
	c.log.Info().Msg("expiry consumer started")
	defer c.log.Info().Msg("expiry consumer stopped")

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInitial
	policy.MaxInterval = c.retryMax
	policy.MaxElapsedTime = 0

	consume := func() error {
		err := c.source.ConsumeExpiries(ctx, c.Handle)
		switch {
		case err == nil, ctx.Err() != nil:
			return nil
		case errors.Is(err, model.ErrUpstreamUnavailable):
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", wait).Msg("expiry source unavailable")
	}

	err := backoff.RetryNotify(consume, backoff.WithContext(policy, ctx), notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Handle processes one expiry message. Bookings that no longer exist are
// acknowledged; other failures are returned so the message is redelivered
// or dropped by the source.
func (c *ExpiryConsumer) Handle(ctx context.Context, msg model.BookingExpiry) error {
	expired, err := c.expirer.Expire(ctx, msg.BookingID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.log.Warn().Str("booking_id", msg.BookingID).Msg("booking vanished before expiry")
		return nil
	case err != nil:
		return err
	case !expired:
		c.log.Debug().Str("booking_id", msg.BookingID).Msg("booking paid or not yet due; skipping")
	}
	return nil
}
