package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/clock"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/payment"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/validator"
)

// PaymentConfig tunes the payment workflow.
type PaymentConfig struct {
	Currency       string
	VerifyCharges  bool
	ConfirmTimeout time.Duration
}

// PaymentDeps are the collaborators of a PaymentService.
type PaymentDeps struct {
	Tx        TxRunner
	Bookings  BookingStore
	Payments  PaymentStore
	Outbox    Outbox
	Processor payment.Processor
	Clock     clock.Clock
	Retry     Retrier
	Log       zerolog.Logger
}

// PaymentService creates payment intents and records confirmed charges.
type PaymentService struct {
	PaymentDeps
	cfg PaymentConfig
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(deps PaymentDeps, cfg PaymentConfig) *PaymentService {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Processor == nil {
		deps.Processor = payment.Disabled{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	cfg.Currency = strings.ToLower(cfg.Currency)
	return &PaymentService{PaymentDeps: deps, cfg: cfg}
}

// CreateIntent asks the processor to authorize a charge and returns the
// client secret unmodified. With a booking id the amount is the booking
// total, and the booking must belong to the caller and still be pending.
func (s *PaymentService) CreateIntent(ctx context.Context, callerEmail string, req model.PaymentIntentRequest) (*model.PaymentIntentResponse, error) {
	if err := validator.Validate(ctx, req); err != nil {
		return nil, err
	}

	var (
		amount   int64
		metadata map[string]string
	)
	switch {
	case req.BookingID != "":
		booking, err := s.Bookings.GetByID(ctx, req.BookingID)
		if err != nil {
			return nil, fmt.Errorf("create payment intent: %w", err)
		}
		if !strings.EqualFold(booking.Email, callerEmail) {
			return nil, fmt.Errorf("%w: booking belongs to another user", model.ErrForbidden)
		}
		switch {
		case booking.Paid:
			return nil, model.ErrAlreadyPaid
		case booking.Status == model.BookingExpired:
			return nil, model.ErrBookingExpired
		}
		amount = model.MinorUnits(booking.TotalPrice)
		metadata = map[string]string{"bookingId": booking.ID, "email": booking.Email}
	case req.Price != nil:
		amount = model.MinorUnits(*req.Price)
	default:
		return nil, &model.ValidationError{Field: "bookingId", Reason: "is required"}
	}
	if amount <= 0 {
		return nil, &model.ValidationError{Field: "price", Reason: "must be greater than 0"}
	}

	intent, err := s.Processor.CreateIntent(ctx, amount, s.cfg.Currency, metadata)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &model.PaymentIntentResponse{ClientSecret: intent.ClientSecret}, nil
}

// Confirm records a completed charge. Inserting the payment, marking the
// booking paid and enqueueing payment.confirmed happen in one transaction,
// so a failure at any step leaves neither a payment nor a paid booking.
func (s *PaymentService) Confirm(ctx context.Context, req model.ConfirmPaymentRequest) (*model.Payment, error) {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if err := validator.Validate(ctx, req); err != nil {
		return nil, err
	}
	if model.MinorUnits(req.Amount) <= 0 {
		return nil, &model.ValidationError{Field: "amount", Reason: "must be at least one minor unit"}
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.cfg.Currency
	}

	// Reject unknown, settled or mispriced bookings before asking the
	// processor; the locked read below checks again.
	var current *model.Booking
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		current, err = s.Bookings.GetByID(ctx, req.BookingID)
		return err
	})
	if err == nil {
		err = checkConfirmable(current, req.Amount)
	}
	if err != nil {
		return nil, confirmError(err)
	}

	if err := s.verifyCharge(ctx, req); err != nil {
		return nil, err
	}

	if s.cfg.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
		defer cancel()
	}

	now := s.Clock.Now()
	p := &model.Payment{
		ID:            model.NewObjectID(now),
		BookingID:     req.BookingID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Currency:      currency,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
	}
	if p.PaymentMethod == nil {
		p.PaymentMethod = map[string]any{}
	}

	err = s.Retry.Do(ctx, func(ctx context.Context) error {
		return s.Tx.WithTx(ctx, func(ctx context.Context) error {
			booking, err := s.Bookings.GetForUpdate(ctx, req.BookingID)
			if err != nil {
				return err
			}
			if err := checkConfirmable(booking, req.Amount); err != nil {
				return err
			}

			if err := s.Payments.Create(ctx, p); err != nil {
				return err
			}
			if err := s.Bookings.MarkPaid(ctx, booking.ID, req.TransactionID, now); err != nil {
				return err
			}
			return s.Outbox.Enqueue(ctx, model.TopicPaymentConfirmed, model.PaymentConfirmed{
				PaymentID:     p.ID,
				BookingID:     p.BookingID,
				TransactionID: p.TransactionID,
				Amount:        p.Amount,
				Currency:      p.Currency,
				ConfirmedAt:   now,
			})
		})
	})
	if err != nil {
		err = confirmError(err)
		s.Log.Warn().Err(err).Str("booking_id", req.BookingID).Msg("payment confirmation failed")
		return nil, err
	}

	s.Log.Info().
		Str("booking_id", p.BookingID).
		Str("payment_id", p.ID).
		Float64("amount", p.Amount).
		Msg("payment confirmed")
	return p, nil
}

// checkConfirmable reports whether a payment of amount may settle b.
func checkConfirmable(b *model.Booking, amount float64) error {
	switch {
	case b.Paid || b.Status == model.BookingPaid:
		return model.ErrAlreadyPaid
	case b.Status == model.BookingExpired:
		return model.ErrBookingExpired
	case model.MinorUnits(amount) != model.MinorUnits(b.TotalPrice):
		return model.ErrAmountMismatch
	}
	return nil
}

// verifyCharge asks the processor whether the charge named by the
// transaction id succeeded for the claimed amount.
func (s *PaymentService) verifyCharge(ctx context.Context, req model.ConfirmPaymentRequest) error {
	if !s.cfg.VerifyCharges || payment.IsDisabled(s.Processor) {
		return nil
	}

	intent, err := s.Processor.GetIntent(ctx, req.TransactionID)
	switch {
	case errors.Is(err, model.ErrChargeNotConfirmed), payment.IsProcessorError(err):
		return fmt.Errorf("%w: %w", model.ErrChargeNotConfirmed, err)
	case err != nil:
		return fmt.Errorf("%w: verify charge: %w", model.ErrPaymentRecordingFailed, err)
	}
	if intent.Status != payment.StatusSucceeded {
		return fmt.Errorf("%w: intent status %s", model.ErrChargeNotConfirmed, intent.Status)
	}
	if intent.Amount != model.MinorUnits(req.Amount) {
		return fmt.Errorf("%w: charged %d, claimed %d", model.ErrChargeNotConfirmed, intent.Amount, model.MinorUnits(req.Amount))
	}
	return nil
}

// confirmError keeps domain outcomes and connectivity failures as they are
// and turns everything else into model.ErrPaymentRecordingFailed.
func confirmError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", model.ErrPaymentRecordingFailed, err)
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrAmountMismatch),
		errors.Is(err, model.ErrInvalidID),
		errors.Is(err, model.ErrUpstreamUnavailable),
		model.IsValidation(err):
		return err
	default:
		return fmt.Errorf("%w: %w", model.ErrPaymentRecordingFailed, err)
	}
}
