package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/auth"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// fakeApp is a small in-memory backend behind the handler interfaces.
type fakeApp struct {
	mu       sync.Mutex
	issuer   *auth.Issuer
	now      time.Time
	events   []*model.Event
	bookings []*model.Booking
	users    map[string]*model.User
	payments map[string]*model.Payment
	pingErr  error
}

func newFakeApp(issuer *auth.Issuer) *fakeApp {
	return &fakeApp{
		issuer:   issuer,
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		users:    map[string]*model.User{},
		payments: map[string]*model.Payment{},
	}
}

func (a *fakeApp) Ping(context.Context) error { return a.pingErr }

func (a *fakeApp) event(id string) (*model.Event, error) {
	if err := model.CheckID(id); err != nil {
		return nil, err
	}
	for _, e := range a.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, model.ErrEventNotFound
}

func (a *fakeApp) booking(id string) (*model.Booking, error) {
	if err := model.CheckID(id); err != nil {
		return nil, err
	}
	for _, b := range a.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, model.ErrBookingNotFound
}

type fakeEvents struct{ *fakeApp }

func (f fakeEvents) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Title == "" {
		return nil, &model.ValidationError{Field: "title", Reason: "is required"}
	}
	e := &model.Event{
		ID: model.NewObjectID(f.now), Title: req.Title, TotalSeats: req.TotalSeats,
		AvailableSeats: req.TotalSeats, Price: req.Price, Metadata: map[string]any{},
	}
	f.events = append(f.events, e)
	return e, nil
}

func (f fakeEvents) List(context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Event{}
	for i := len(f.events) - 1; i >= 0; i-- {
		out = append(out, *f.events[i])
	}
	return out, nil
}

func (f fakeEvents) Get(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.event(id)
}

func (f fakeEvents) Update(_ context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, err := f.event(id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (f fakeEvents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.event(id); err != nil {
		return err
	}
	for _, b := range f.bookings {
		if b.EventID == id {
			return model.ErrEventHasBookings
		}
	}
	for i, e := range f.events {
		if e.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			break
		}
	}
	return nil
}

type fakeBookings struct{ *fakeApp }

func (f fakeBookings) Create(_ context.Context, caller string, req model.CreateBookingRequest) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.EqualFold(caller, req.Email) {
		return nil, model.ErrForbidden
	}
	e, err := f.event(req.EventID)
	if err != nil {
		return nil, err
	}
	qty := max(req.Quantity, 1)
	if e.AvailableSeats < qty {
		return nil, model.ErrEventFull
	}
	e.AvailableSeats -= qty
	b := &model.Booking{
		ID: model.NewObjectID(f.now), EventID: e.ID, Email: strings.ToLower(req.Email), Quantity: qty,
		TotalPrice: e.Price * float64(qty), Status: model.BookingPending, CreatedAt: f.now,
		ExpiresAt: f.now.Add(15 * time.Minute),
	}
	f.bookings = append(f.bookings, b)
	return b, nil
}

func (f fakeBookings) ListByEmail(_ context.Context, caller, email string) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if email == "" {
		email = caller
	}
	if !strings.EqualFold(email, caller) {
		return nil, model.ErrForbidden
	}
	out := []model.Booking{}
	for _, b := range f.bookings {
		if b.Email == email {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f fakeBookings) Get(_ context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.booking(id)
	if err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

type fakeUsers struct{ *fakeApp }

func (f fakeUsers) Register(_ context.Context, req model.RegisterUserRequest) (*model.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Email == "" {
		return nil, false, &model.ValidationError{Field: "email", Reason: "is required"}
	}
	if u, ok := f.users[req.Email]; ok {
		return u, false, nil
	}
	u := &model.User{ID: model.NewObjectID(f.now), Email: req.Email, Name: req.Name, Role: model.RoleAttendee, CreatedAt: f.now}
	f.users[req.Email] = u
	return u, true, nil
}

func (f fakeUsers) List(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f fakeUsers) IssueToken(_ context.Context, email string) (*model.TokenResponse, error) {
	f.mu.Lock()
	_, ok := f.users[email]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("issue token: %w", model.ErrUserNotFound)
	}
	token, exp, err := f.issuer.Issue(email)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{Token: token, ExpiresAt: exp}, nil
}

func (f fakeUsers) RoleOf(_ context.Context, email string) (model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return "", model.ErrUserNotFound
	}
	return u.Role, nil
}

type fakePayments struct{ *fakeApp }

func (f fakePayments) CreateIntent(_ context.Context, caller string, req model.PaymentIntentRequest) (*model.PaymentIntentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.BookingID == "" {
		return nil, &model.ValidationError{Field: "bookingId", Reason: "is required"}
	}
	b, err := f.booking(req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Email != caller {
		return nil, model.ErrForbidden
	}
	return &model.PaymentIntentResponse{ClientSecret: "pi_" + b.ID + "_secret"}, nil
}

func (f fakePayments) Confirm(_ context.Context, req model.ConfirmPaymentRequest) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.TransactionID == "" {
		return nil, &model.ValidationError{Field: "transactionId", Reason: "is required"}
	}
	b, err := f.booking(req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Paid {
		return nil, model.ErrAlreadyPaid
	}
	if req.Amount != b.TotalPrice {
		return nil, model.ErrAmountMismatch
	}
	p := &model.Payment{
		ID: model.NewObjectID(f.now), BookingID: b.ID, TransactionID: req.TransactionID,
		Amount: req.Amount, Currency: "usd", PaymentMethod: map[string]any{}, CreatedAt: f.now,
	}
	f.payments[b.ID] = p
	b.Paid, b.Status, b.TransactionID = true, model.BookingPaid, &req.TransactionID
	return p, nil
}

var errBoom = errors.New("boom")
