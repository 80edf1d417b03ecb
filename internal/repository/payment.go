package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// PaymentRepository handles persistence for recorded payments.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment. The unique constraints turn a second payment for
// the same booking into model.ErrAlreadyPaid and a reused transaction id into
// model.ErrDuplicateTransaction.
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	method := p.PaymentMethod
	if method == nil {
		method = map[string]any{}
	}
	_, err := conn(ctx, r.db).Exec(ctx, `
INSERT INTO payments (id, booking_id, transaction_id, amount, currency, payment_method, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.BookingID, p.TransactionID, p.Amount, p.Currency, method, p.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "payments_booking_id_key"):
			return model.ErrAlreadyPaid
		case isUniqueViolation(err, "payments_transaction_id_key"):
			return model.ErrDuplicateTransaction
		case isForeignKeyViolation(err):
			return model.ErrBookingNotFound
		}
		return classify(fmt.Errorf("insert payment: %w", err))
	}
	return nil
}

// GetByBookingID returns the payment recorded for a booking.
func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*model.Payment, error) {
	var p model.Payment
	err := conn(ctx, r.db).QueryRow(ctx, `
SELECT id, booking_id, transaction_id, amount, currency, payment_method, created_at
FROM payments WHERE booking_id = $1`,
		bookingID,
	).Scan(&p.ID, &p.BookingID, &p.TransactionID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %w", model.ErrNotFound)
		}
		return nil, classify(fmt.Errorf("get payment: %w", err))
	}
	return &p, nil
}
