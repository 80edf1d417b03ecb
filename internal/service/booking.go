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
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/validator"
)

// DefaultHoldTTL is how long an unpaid booking keeps its seats.
const DefaultHoldTTL = 15 * time.Minute

// BookingDeps are the collaborators of a BookingService. Scheduler is
// optional; without it only the sweep expires bookings.
type BookingDeps struct {
	Tx        TxRunner
	Events    EventStore
	Bookings  BookingStore
	Outbox    Outbox
	Scheduler ExpiryScheduler
	Clock     clock.Clock
	Retry     Retrier
	Log       zerolog.Logger
}

// BookingService reserves seats and manages the booking lifecycle.
type BookingService struct {
	BookingDeps
	holdTTL time.Duration
}

// NewBookingService constructs a BookingService.
func NewBookingService(deps BookingDeps, holdTTL time.Duration) *BookingService {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	return &BookingService{BookingDeps: deps, holdTTL: holdTTL}
}

// Create reserves seats for the caller. The seat decrement, the booking
// insert and the booking.created message commit together.
func (s *BookingService) Create(ctx context.Context, callerEmail string, req model.CreateBookingRequest) (*model.Booking, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validator.Validate(ctx, req); err != nil {
		return nil, err
	}
	if !strings.EqualFold(req.Email, callerEmail) {
		return nil, fmt.Errorf("%w: booking email does not match token", model.ErrForbidden)
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	now := s.Clock.Now()
	booking := &model.Booking{
		ID:        model.NewObjectID(now),
		EventID:   req.EventID,
		Email:     req.Email,
		Quantity:  quantity,
		Status:    model.BookingPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.holdTTL),
	}

	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		return s.Tx.WithTx(ctx, func(ctx context.Context) error {
			event, err := s.Events.ReserveSeats(ctx, req.EventID, quantity)
			if err != nil {
				return err
			}
			total := model.MinorUnits(event.Price) * int64(quantity)
			if req.TotalPrice != nil && model.MinorUnits(*req.TotalPrice) != total {
				return model.ErrPriceMismatch
			}
			booking.TotalPrice = model.FromMinorUnits(total)
			if total == 0 {
				booking.SettleFree(now)
			}

			if err := s.Bookings.Create(ctx, booking); err != nil {
				return err
			}
			return s.Outbox.Enqueue(ctx, model.TopicBookingCreated, model.BookingCreated{
				BookingID:  booking.ID,
				EventID:    booking.EventID,
				Email:      booking.Email,
				Quantity:   booking.Quantity,
				TotalPrice: booking.TotalPrice,
				ExpiresAt:  booking.ExpiresAt,
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.Log.Info().
		Str("booking_id", booking.ID).
		Str("event_id", booking.EventID).
		Int("quantity", booking.Quantity).
		Bool("paid", booking.Paid).
		Msg("booking created")

	if s.Scheduler != nil && !booking.Paid {
		msg := model.BookingExpiry{BookingID: booking.ID, EventID: booking.EventID, ExpireAt: booking.ExpiresAt}
		if err := s.Scheduler.ScheduleExpiry(ctx, msg, s.holdTTL); err != nil {
			s.Log.Warn().Err(err).Str("booking_id", booking.ID).Msg("schedule expiry failed; sweep will release it")
		}
	}
	return booking, nil
}

// ListByEmail returns the bookings of one attendee, newest first. An empty
// email means the caller's own bookings.
func (s *BookingService) ListByEmail(ctx context.Context, callerEmail, email string) ([]model.Booking, error) {
	email = normalizeEmail(email)
	if email == "" {
		email = normalizeEmail(callerEmail)
	}
	if email == "" || !strings.EqualFold(email, callerEmail) {
		return nil, fmt.Errorf("%w: cannot list bookings of another user", model.ErrForbidden)
	}

	var bookings []model.Booking
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		bookings, err = s.Bookings.ListByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return bookings, nil
}

// Get returns a single booking.
func (s *BookingService) Get(ctx context.Context, id string) (*model.Booking, error) {
	if err := model.CheckID(id); err != nil {
		return nil, err
	}
	var booking *model.Booking
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.Bookings.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// Expire releases the seats of a pending booking whose hold has passed and
// reports whether it did. Paid, expired and not-yet-due bookings are left
// alone.
func (s *BookingService) Expire(ctx context.Context, id string) (bool, error) {
	if err := model.CheckID(id); err != nil {
		return false, err
	}

	var expired bool
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		expired = false
		return s.Tx.WithTx(ctx, func(ctx context.Context) error {
			booking, err := s.Bookings.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			now := s.Clock.Now()
			if !booking.Overdue(now) {
				return nil
			}
			ok, err := s.Bookings.MarkExpired(ctx, id)
			if err != nil || !ok {
				return err
			}
			if err := s.Events.ReleaseSeats(ctx, booking.EventID, booking.Quantity); err != nil {
				return err
			}
			if err := s.Outbox.Enqueue(ctx, model.TopicBookingExpired, model.BookingExpiredEvent{
				BookingID: booking.ID,
				EventID:   booking.EventID,
				Quantity:  booking.Quantity,
				ExpiredAt: now,
			}); err != nil {
				return err
			}
			expired = true
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("expire booking %s: %w", id, err)
	}
	if expired {
		s.Log.Info().Str("booking_id", id).Msg("booking expired")
	}
	return expired, nil
}

// SweepExpired expires every overdue pending booking in batches of limit
// and returns how many it expired.
func (s *BookingService) SweepExpired(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	total := 0
	for {
		ids, err := s.Bookings.ListOverdue(ctx, s.Clock.Now(), limit)
		if err != nil {
			return total, fmt.Errorf("sweep bookings: %w", err)
		}

		batch := 0
		for _, id := range ids {
			ok, err := s.Expire(ctx, id)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					continue
				}
				return total, err
			}
			if ok {
				batch++
			}
		}
		total += batch

		if len(ids) < limit || batch == 0 {
			return total, nil
		}
	}
}
