package model

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these to HTTP statuses with errors.Is, so
// entity-specific errors wrap the generic kind they belong to.
var (
	ErrUnauthenticated        = errors.New("unauthorized access")
	ErrForbidden              = errors.New("forbidden access")
	ErrNotFound               = errors.New("not found")
	ErrPaymentRecordingFailed = errors.New("payment recording failed")
	ErrUpstreamUnavailable    = errors.New("upstream unavailable")
	ErrConflict               = errors.New("conflict")
)

var (
	ErrEventNotFound   = fmt.Errorf("event %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	ErrEventFull            = fmt.Errorf("%w: not enough seats available", ErrConflict)
	ErrEventHasBookings     = fmt.Errorf("%w: event has bookings", ErrConflict)
	ErrUserExists           = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrAlreadyPaid          = fmt.Errorf("%w: booking already paid", ErrConflict)
	ErrDuplicateTransaction = fmt.Errorf("%w: transaction already recorded", ErrConflict)
	ErrBookingExpired       = fmt.Errorf("%w: booking expired", ErrConflict)
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrAmountMismatch     = errors.New("amount does not match booking total")
	ErrPriceMismatch      = errors.New("totalPrice does not match event price")
	ErrChargeNotConfirmed = errors.New("charge not confirmed by processor")
	ErrProcessor          = errors.New("payment processor error")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
