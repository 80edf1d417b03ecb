package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// OutboxStore hands pending outbox messages to a publisher.
type OutboxStore interface {
	PublishPending(ctx context.Context, limit int, publish func(ctx context.Context, msg model.OutboxMessage) error) (int, error)
}

// EventPublisher delivers one message to the broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, msg model.OutboxMessage) error
}

// OutboxRelay periodically publishes committed outbox messages.
type OutboxRelay struct {
	store     OutboxStore
	publisher EventPublisher
	interval  time.Duration
	batch     int
	log       zerolog.Logger
}

// NewOutboxRelay constructs an OutboxRelay.
func NewOutboxRelay(store OutboxStore, publisher EventPublisher, interval time.Duration, batch int, log zerolog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &OutboxRelay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		log:       log.With().Str("worker", "outbox").Logger(),
	}
}

// Run drains the outbox every interval until ctx is done. Publish failures
// are logged and retried on the next tick.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Msg("outbox relay started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if n, err := r.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Warn().Err(err).Int("published", n).Msg("outbox relay")
		} else if n > 0 {
			r.log.Debug().Int("published", n).Msg("outbox drained")
		}

		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Drain publishes full batches until the outbox is empty or a publish
// fails, and returns how many messages it published.
func (r *OutboxRelay) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := r.store.PublishPending(ctx, r.batch, r.publisher.PublishEvent)
		total += n
		if err != nil || n < r.batch {
			return total, err
		}
	}
}
