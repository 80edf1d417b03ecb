package model

import "time"

// Outbox topics. The topic doubles as the routing key on the events exchange.
const (
	TopicBookingCreated   = "booking.created"
	TopicBookingExpired   = "booking.expired"
	TopicPaymentConfirmed = "payment.confirmed"
)

// OutboxMessage is a domain event committed together with the state change
// it describes and relayed to the broker afterwards.
type OutboxMessage struct {
	ID          string
	Topic       string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// BookingCreated is published after a booking commits.
type BookingCreated struct {
	BookingID  string    `json:"bookingId"`
	EventID    string    `json:"eventId"`
	Email      string    `json:"email"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"totalPrice"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// BookingExpiredEvent is published after an unpaid booking releases its seats.
type BookingExpiredEvent struct {
	BookingID string    `json:"bookingId"`
	EventID   string    `json:"eventId"`
	Quantity  int       `json:"quantity"`
	ExpiredAt time.Time `json:"expiredAt"`
}

// PaymentConfirmed is published after the confirmation transaction commits.
type PaymentConfirmed struct {
	PaymentID     string    `json:"paymentId"`
	BookingID     string    `json:"bookingId"`
	TransactionID string    `json:"transactionId"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
}

// BookingExpiry is the delayed message that asks for an unpaid booking to be
// released once its hold window has passed.
type BookingExpiry struct {
	BookingID string    `json:"bookingId"`
	EventID   string    `json:"eventId"`
	ExpireAt  time.Time `json:"expireAt"`
}
