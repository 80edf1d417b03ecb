package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

const bookingColumns = `id, event_id, email, quantity, total_price, status, paid,
	transaction_id, created_at, expires_at, paid_at`

// BookingRepository handles persistence for the booking ledger.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row scanner) (*model.Booking, error) {
	var b model.Booking
	var status string
	err := row.Scan(
		&b.ID, &b.EventID, &b.Email, &b.Quantity, &b.TotalPrice, &status, &b.Paid,
		&b.TransactionID, &b.CreatedAt, &b.ExpiresAt, &b.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return &b, nil
}

// Create inserts a new booking, pending or already settled.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
INSERT INTO bookings (id, event_id, email, quantity, total_price, status, paid,
	transaction_id, created_at, expires_at, paid_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.EventID, b.Email, b.Quantity, b.TotalPrice, string(b.Status), b.Paid,
		b.TransactionID, b.CreatedAt, b.ExpiresAt, b.PaidAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrEventNotFound
		}
		return classify(fmt.Errorf("insert booking: %w", err))
	}
	return nil
}

// GetByID returns a single booking or model.ErrBookingNotFound.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate returns a booking and locks its row until the surrounding
// transaction ends.
func (r *BookingRepository) GetForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) get(ctx context.Context, query, id string) (*model.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookingNotFound
		}
		return nil, classify(fmt.Errorf("get booking: %w", err))
	}
	return b, nil
}

// ListByEmail returns the bookings of one attendee, newest first.
func (r *BookingRepository) ListByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE email = $1 ORDER BY seq DESC`,
		email,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("list bookings: %w", err))
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list bookings: %w", err))
	}
	return bookings, nil
}

// MarkPaid moves a pending booking to paid. It returns model.ErrAlreadyPaid
// when the booking is no longer pending.
func (r *BookingRepository) MarkPaid(ctx context.Context, id, transactionID string, paidAt time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
UPDATE bookings
SET status = 'paid', paid = TRUE, transaction_id = $2, paid_at = $3
WHERE id = $1 AND status = 'pending'`,
		id, transactionID, paidAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return model.ErrDuplicateTransaction
		}
		return classify(fmt.Errorf("mark booking paid: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAlreadyPaid
	}
	return nil
}

// MarkExpired moves a pending booking to expired and reports whether it did.
func (r *BookingRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE bookings SET status = 'expired' WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, classify(fmt.Errorf("mark booking expired: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// ListOverdue returns ids of pending bookings whose hold expired at or
// before now, oldest first.
func (r *BookingRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
SELECT id FROM bookings
WHERE status = 'pending' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("list overdue bookings: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(fmt.Errorf("scan overdue bookings: %w", err))
	}
	return ids, nil
}
