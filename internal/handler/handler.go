// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/payment"
)

// EventService is the event catalog as seen by the handlers.
type EventService interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Get(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// BookingService is the booking ledger as seen by the handlers.
type BookingService interface {
	Create(ctx context.Context, callerEmail string, req model.CreateBookingRequest) (*model.Booking, error)
	ListByEmail(ctx context.Context, callerEmail, email string) ([]model.Booking, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
}

// UserService is the user directory and token issuer as seen by the
// handlers.
type UserService interface {
	Register(ctx context.Context, req model.RegisterUserRequest) (*model.User, bool, error)
	List(ctx context.Context) ([]model.User, error)
	IssueToken(ctx context.Context, email string) (*model.TokenResponse, error)
	RoleOf(ctx context.Context, email string) (model.Role, error)
}

// PaymentService is the payment workflow as seen by the handlers.
type PaymentService interface {
	CreateIntent(ctx context.Context, callerEmail string, req model.PaymentIntentRequest) (*model.PaymentIntentResponse, error)
	Confirm(ctx context.Context, req model.ConfirmPaymentRequest) (*model.Payment, error)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if model.IsValidation(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &model.ValidationError{Reason: "request body is empty"}
		}
		return &model.ValidationError{Reason: "invalid request body: " + err.Error()}
	}
	return nil
}

// errorMapping ties an error kind to its response. Entries are matched in
// order with errors.Is, so specific errors come before the kinds they wrap.
type errorMapping struct {
	target error
	status int
	code   string
	msg    string
}

var errorMappings = []errorMapping{
	{model.ErrInvalidID, http.StatusBadRequest, "invalid_id", "invalid id"},
	{model.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized", "unauthorized access"},
	{model.ErrForbidden, http.StatusForbidden, "forbidden", "forbidden access"},
	{model.ErrPaymentRecordingFailed, http.StatusInternalServerError, "payment_recording_failed", "payment recording failed"},
	{model.ErrChargeNotConfirmed, http.StatusPaymentRequired, "charge_not_confirmed", "charge not confirmed by processor"},
	{model.ErrAmountMismatch, http.StatusBadRequest, "amount_mismatch", "amount does not match booking total"},
	{model.ErrPriceMismatch, http.StatusBadRequest, "price_mismatch", "totalPrice does not match event price"},
	{model.ErrEventNotFound, http.StatusNotFound, "not_found", "event not found"},
	{model.ErrBookingNotFound, http.StatusNotFound, "not_found", "booking not found"},
	{model.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{model.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{model.ErrEventFull, http.StatusConflict, "event_full", "not enough seats available"},
	{model.ErrAlreadyPaid, http.StatusConflict, "already_paid", "booking already paid"},
	{model.ErrDuplicateTransaction, http.StatusConflict, "duplicate_transaction", "transaction already recorded"},
	{model.ErrBookingExpired, http.StatusConflict, "booking_expired", "booking expired"},
	{model.ErrEventHasBookings, http.StatusConflict, "event_has_bookings", "event has bookings"},
	{model.ErrUserExists, http.StatusConflict, "user_exists", "user already exists"},
	{model.ErrConflict, http.StatusConflict, "conflict", "conflict"},
	{payment.ErrProcessorDisabled, http.StatusServiceUnavailable, "processor_disabled", "payment processor not configured"},
	{model.ErrProcessor, http.StatusBadGateway, "upstream_error", "upstream error"},
	{model.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "upstream_unavailable", "service temporarily unavailable"},
}

// statusFor maps an error to its HTTP status, code and client message.
func statusFor(err error) (int, string, string) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, "invalid_request", ve.Error()
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.msg
		}
	}
	return http.StatusInternalServerError, "internal_error", "internal server error"
}

// respondError writes the response for err and logs server-side failures.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", code).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", code).Msg("request rejected")
	}
	writeError(w, status, code, msg)
}

func errMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Sprintf("%s not allowed", r.Method))
}

func errRouteNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "route not found")
}
