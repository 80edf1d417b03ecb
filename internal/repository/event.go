package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

const eventColumns = `id, title, description, venue, image_url, starts_at,
	total_seats, available_seats, price, metadata, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// EventRepository handles persistence for the event catalog.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row scanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Venue, &e.ImageURL, &e.StartsAt,
		&e.TotalSeats, &e.AvailableSeats, &e.Price, &e.Metadata, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	return &e, nil
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
INSERT INTO events (id, title, description, venue, image_url, starts_at,
	total_seats, available_seats, price, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Title, e.Description, e.Venue, e.ImageURL, e.StartsAt,
		e.TotalSeats, e.AvailableSeats, e.Price, metadataOrEmpty(e.Metadata), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return &model.ValidationError{Field: "availableSeats", Reason: "must be between 0 and totalSeats"}
		}
		return classify(fmt.Errorf("insert event: %w", err))
	}
	return nil
}

// List returns all events, most recently created first.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq DESC`)
	if err != nil {
		return nil, classify(fmt.Errorf("list events: %w", err))
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list events: %w", err))
	}
	return events, nil
}

// GetByID returns a single event or model.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// GetForUpdate returns an event and locks its row until the surrounding
// transaction ends.
func (r *EventRepository) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *EventRepository) get(ctx context.Context, query, id string) (*model.Event, error) {
	e, err := scanEvent(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, classify(fmt.Errorf("get event: %w", err))
	}
	return e, nil
}

// Update overwrites the mutable fields of an existing event.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
UPDATE events
SET title = $2, description = $3, venue = $4, image_url = $5, starts_at = $6,
	total_seats = $7, available_seats = $8, price = $9, metadata = $10, updated_at = $11
WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Venue, e.ImageURL, e.StartsAt,
		e.TotalSeats, e.AvailableSeats, e.Price, metadataOrEmpty(e.Metadata), e.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return &model.ValidationError{Field: "availableSeats", Reason: "must be between 0 and totalSeats"}
		}
		return classify(fmt.Errorf("update event: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

// Delete removes an event that no booking references.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrEventHasBookings
		}
		return classify(fmt.Errorf("delete event: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

// ReserveSeats decrements the free seats of an event only when enough
// remain, and returns the updated event. The conditional update is what
// prevents overselling under concurrent bookings.
func (r *EventRepository) ReserveSeats(ctx context.Context, id string, quantity int) (*model.Event, error) {
	q := conn(ctx, r.db)
	e, err := scanEvent(q.QueryRow(ctx, `
UPDATE events
SET available_seats = available_seats - $2, updated_at = NOW()
WHERE id = $1 AND available_seats >= $2
RETURNING `+eventColumns,
		id, quantity,
	))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classify(fmt.Errorf("reserve seats: %w", err))
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, classify(fmt.Errorf("check event: %w", err))
	}
	if !exists {
		return nil, model.ErrEventNotFound
	}
	return nil, model.ErrEventFull
}

// ReleaseSeats returns seats to an event, never exceeding its capacity.
func (r *EventRepository) ReleaseSeats(ctx context.Context, id string, quantity int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
UPDATE events
SET available_seats = LEAST(total_seats, available_seats + $2), updated_at = NOW()
WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return classify(fmt.Errorf("release seats: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}
