package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// OutboxRepository stores domain events next to the state changes that
// produced them and hands them to a relay for publishing.
type OutboxRepository struct {
	db *pgxpool.Pool
}

// NewOutboxRepository constructs an OutboxRepository.
func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue records a message. Called inside a transaction it commits or
// rolls back together with the caller's writes.
func (r *OutboxRepository) Enqueue(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	_, err = conn(ctx, r.db).Exec(ctx,
		`INSERT INTO outbox (id, topic, payload, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), topic, body, time.Now().UTC(),
	)
	if err != nil {
		return classify(fmt.Errorf("enqueue %s: %w", topic, err))
	}
	return nil
}

// PublishPending locks up to limit unpublished messages, passes them to
// publish in creation order, and marks the ones that succeeded. The first
// publish failure stops the batch; remaining messages stay pending for the
// next call. Concurrent relays skip each other's locked rows.
func (r *OutboxRepository) PublishPending(
	ctx context.Context,
	limit int,
	publish func(ctx context.Context, msg model.OutboxMessage) error,
) (int, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, classify(fmt.Errorf("begin outbox transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	rows, err := tx.Query(ctx, `
SELECT id::text, topic, payload, created_at
FROM outbox
WHERE published_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return 0, classify(fmt.Errorf("select outbox: %w", err))
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.OutboxMessage, error) {
		var m model.OutboxMessage
		err := row.Scan(&m.ID, &m.Topic, &m.Payload, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return 0, classify(fmt.Errorf("scan outbox: %w", err))
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(msgs))
	var publishErr error
	for _, m := range msgs {
		if publishErr = publish(ctx, m); publishErr != nil {
			break
		}
		published = append(published, uuid.MustParse(m.ID))
	}

	if len(published) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])`,
			published,
		); err != nil {
			return 0, classify(fmt.Errorf("mark outbox published: %w", err))
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, classify(fmt.Errorf("commit outbox: %w", err))
		}
	}
	if publishErr != nil {
		return len(published), fmt.Errorf("publish outbox message: %w", publishErr)
	}
	return len(published), nil
}
