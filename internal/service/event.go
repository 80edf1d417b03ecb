package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/clock"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/validator"
)

// EventService orchestrates event catalog operations.
type EventService struct {
	tx     TxRunner
	events EventStore
	clock  clock.Clock
	retry  Retrier
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(tx TxRunner, events EventStore, clk clock.Clock, retry Retrier) *EventService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &EventService{tx: tx, events: events, clock: clk, retry: retry}
}

// Create validates the request and stores a new event. Available seats
// default to the full capacity.
func (s *EventService) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validator.Validate(ctx, req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &model.Event{
		ID:             model.NewObjectID(now),
		Title:          req.Title,
		Description:    req.Description,
		Venue:          req.Venue,
		ImageURL:       req.ImageURL,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		Price:          req.Price,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.StartsAt != nil {
		t := req.StartsAt.UTC()
		event.StartsAt = &t
	}
	if req.AvailableSeats != nil {
		event.AvailableSeats = *req.AvailableSeats
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if err := event.CheckCapacity(); err != nil {
		return nil, err
	}

	if err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.events.Create(ctx, event)
	}); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// List returns all events, newest first.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		events, err = s.events.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// Get returns a single event by ID.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	if err := model.CheckID(id); err != nil {
		return nil, err
	}
	var event *model.Event
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.events.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Update applies a partial update under a row lock so concurrent bookings
// never observe a half-applied change.
func (s *EventService) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	if err := model.CheckID(id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	var updated *model.Event
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			event, err := s.events.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if err := patch.Apply(event); err != nil {
				return err
			}
			event.UpdatedAt = s.clock.Now()
			if err := s.events.Update(ctx, event); err != nil {
				return err
			}
			updated = event
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

// Delete removes an event that no booking references.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := model.CheckID(id); err != nil {
		return err
	}
	if err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.events.Delete(ctx, id)
	}); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
