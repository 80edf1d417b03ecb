// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetForUpdate(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id string) error
	ReserveSeats(ctx context.Context, id string, quantity int) (*model.Event, error)
	ReleaseSeats(ctx context.Context, id string, quantity int) error
}

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetForUpdate(ctx context.Context, id string) (*model.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]model.Booking, error)
	MarkPaid(ctx context.Context, id, transactionID string, paidAt time.Time) error
	MarkExpired(ctx context.Context, id string) (bool, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// UserStore persists the user directory.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetRole(ctx context.Context, email string, role model.Role) error
}

// PaymentStore persists payments.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByBookingID(ctx context.Context, bookingID string) (*model.Payment, error)
}

// Outbox records a domain event in the current transaction.
type Outbox interface {
	Enqueue(ctx context.Context, topic string, payload any) error
}

// ExpiryScheduler arranges for a booking expiry to be delivered later.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, msg model.BookingExpiry, delay time.Duration) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(email string) (string, time.Time, error)
}
