// Package model defines the core domain types for the theater ticketing system.
package model

import (
	"math"
	"time"
)

// Event represents a bookable show created by an organizer.
type Event struct {
	ID             string         `json:"_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Venue          string         `json:"venue"`
	ImageURL       string         `json:"imageUrl"`
	StartsAt       *time.Time     `json:"startsAt,omitempty"`
	TotalSeats     int            `json:"totalSeats"`
	AvailableSeats int            `json:"availableSeats"`
	Price          float64        `json:"price"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// IsSoldOut returns true when no seats remain.
func (e *Event) IsSoldOut() bool {
	return e.AvailableSeats <= 0
}

// CheckCapacity reports whether the seat counters are consistent.
func (e *Event) CheckCapacity() error {
	if e.TotalSeats <= 0 {
		return &ValidationError{Field: "totalSeats", Reason: "must be greater than zero"}
	}
	if e.AvailableSeats < 0 {
		return &ValidationError{Field: "availableSeats", Reason: "must not be negative"}
	}
	if e.AvailableSeats > e.TotalSeats {
		return &ValidationError{Field: "availableSeats", Reason: "must not exceed totalSeats"}
	}
	return nil
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending BookingStatus = "pending"
	BookingPaid    BookingStatus = "paid"
	BookingExpired BookingStatus = "expired"
)

// Booking is a reservation of event seats by one attendee.
// TransactionID is set if and only if Paid is true.
type Booking struct {
	ID            string        `json:"_id"`
	EventID       string        `json:"eventId"`
	Email         string        `json:"email"`
	Quantity      int           `json:"quantity"`
	TotalPrice    float64       `json:"totalPrice"`
	Status        BookingStatus `json:"status"`
	Paid          bool          `json:"paid"`
	TransactionID *string       `json:"transactionId"`
	CreatedAt     time.Time     `json:"createdAt"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
}

// Overdue reports whether a pending booking has outlived its hold window.
func (b *Booking) Overdue(now time.Time) bool {
	return b.Status == BookingPending && !now.Before(b.ExpiresAt)
}

// FreeTransactionPrefix marks the transaction id of a booking that cost
// nothing and was settled without a processor charge.
const FreeTransactionPrefix = "free_"

// SettleFree marks a zero-total booking paid at the given instant. No
// Payment record exists for such a booking.
func (b *Booking) SettleFree(at time.Time) {
	txID := FreeTransactionPrefix + b.ID
	b.Status = BookingPaid
	b.Paid = true
	b.TransactionID = &txID
	b.PaidAt = &at
}

// Role grants capabilities to a user.
type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// CanOrganize reports whether the role may manage the event catalog.
func (r Role) CanOrganize() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// User is an entry in the user directory, unique by email.
type User struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payment records a completed external charge against one booking.
type Payment struct {
	ID            string         `json:"_id"`
	BookingID     string         `json:"bookingId"`
	TransactionID string         `json:"transactionId"`
	Amount        float64        `json:"amount"`
	Currency      string         `json:"currency"`
	PaymentMethod map[string]any `json:"paymentMethod"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// MinorUnits converts an amount in major currency units to an integer
// count of minor units (cents), rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts minor units back to a two-decimal amount.
func FromMinorUnits(units int64) float64 {
	return float64(units) / 100
}

// ─── Requests and responses ──────────────────────────────────────────────────

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title          string         `json:"title" validate:"required,max=200"`
	Description    string         `json:"description" validate:"max=5000"`
	Venue          string         `json:"venue" validate:"max=200"`
	ImageURL       string         `json:"imageUrl" validate:"omitempty,url"`
	StartsAt       *time.Time     `json:"startsAt"`
	TotalSeats     int            `json:"totalSeats" validate:"gt=0,lte=100000"`
	AvailableSeats *int           `json:"availableSeats" validate:"omitempty,gte=0"`
	Price          float64        `json:"price" validate:"gte=0"`
	Metadata       map[string]any `json:"metadata"`
}

// CreateBookingRequest is the payload for reserving seats.
type CreateBookingRequest struct {
	EventID    string   `json:"eventId" validate:"required,objectid"`
	Email      string   `json:"email" validate:"required,email"`
	Quantity   int      `json:"quantity" validate:"omitempty,gt=0,lte=20"`
	TotalPrice *float64 `json:"totalPrice" validate:"omitempty,gte=0"`
}

// RegisterUserRequest is the payload for adding a user to the directory.
// Self-registered users are always attendees.
type RegisterUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=200"`
}

// GrantRoleRequest assigns a role to a user, creating the user if needed.
type GrantRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=attendee organizer admin"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PaymentIntentRequest asks the processor to authorize a charge. BookingID is
// preferred; Price is accepted for clients that only know the amount.
type PaymentIntentRequest struct {
	BookingID string   `json:"bookingId" validate:"omitempty,objectid"`
	Price     *float64 `json:"price" validate:"omitempty,gt=0"`
}

// PaymentIntentResponse returns the processor's client secret unmodified.
type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// ConfirmPaymentRequest is the input to the payment confirmation workflow.
type ConfirmPaymentRequest struct {
	BookingID     string         `json:"bookingId" validate:"required,objectid"`
	TransactionID string         `json:"transactionId" validate:"required,max=255"`
	Amount        float64        `json:"amount" validate:"gt=0"`
	Currency      string         `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod map[string]any `json:"paymentMethod"`
}

// AlreadyRegisteredResponse is returned when a user registers twice.
type AlreadyRegisteredResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
