package service

import (
	"context"
	"encoding/json"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/payment"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: epoch} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type outboxEntry struct {
	Topic   string
	Payload []byte
}

// memStore is an in-memory database. WithTx snapshots every table and
// restores the snapshot when fn fails, which is enough to observe
// atomicity in single-goroutine tests.
type memStore struct {
	mu       sync.Mutex
	seq      int
	order    map[string]int
	events   map[string]model.Event
	bookings map[string]model.Booking
	users    map[string]model.User
	payments map[string]model.Payment
	outbox   []outboxEntry

	failMarkPaid error
	failEnqueue  error
}

func newMemStore() *memStore {
	return &memStore{
		order:    map[string]int{},
		events:   map[string]model.Event{},
		bookings: map[string]model.Booking{},
		users:    map[string]model.User{},
		payments: map[string]model.Payment{},
	}
}

type snapshot struct {
	seq      int
	order    map[string]int
	events   map[string]model.Event
	bookings map[string]model.Booking
	users    map[string]model.User
	payments map[string]model.Payment
	outbox   []outboxEntry
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	snap := snapshot{
		seq:      m.seq,
		order:    maps.Clone(m.order),
		events:   maps.Clone(m.events),
		bookings: maps.Clone(m.bookings),
		users:    maps.Clone(m.users),
		payments: maps.Clone(m.payments),
		outbox:   append([]outboxEntry(nil), m.outbox...),
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.seq, m.order, m.events, m.bookings = snap.seq, snap.order, snap.events, snap.bookings
		m.users, m.payments, m.outbox = snap.users, snap.payments, snap.outbox
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) next(id string) {
	m.seq++
	m.order[id] = m.seq
}

func (m *memStore) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.outbox))
	for _, e := range m.outbox {
		out = append(out, e.Topic)
	}
	return out
}

func (m *memStore) booking(id string) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id]
}

func (m *memStore) event(id string) model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id]
}

func (m *memStore) paymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

func (m *memStore) addEvent(seats int, price float64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := model.NewObjectID(epoch)
	m.events[id] = model.Event{
		ID: id, Title: "Hamlet", TotalSeats: seats, AvailableSeats: seats, Price: price,
		Metadata: map[string]any{}, CreatedAt: epoch, UpdatedAt: epoch,
	}
	m.next(id)
	return id
}

// ─── events ──────────────────────────────────────────────────────────────────

type memEvents struct{ *memStore }

func (m memEvents) Create(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = *e
	m.next(e.ID)
	return nil
}

func (m memEvents) List(context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out, nil
}

func (m memEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	e.Metadata = maps.Clone(e.Metadata)
	return &e, nil
}

func (m memEvents) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return m.GetByID(ctx, id)
}

func (m memEvents) Update(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; !ok {
		return model.ErrEventNotFound
	}
	m.events[e.ID] = *e
	return nil
}

func (m memEvents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return model.ErrEventNotFound
	}
	for _, b := range m.bookings {
		if b.EventID == id {
			return model.ErrEventHasBookings
		}
	}
	delete(m.events, id)
	return nil
}

func (m memEvents) ReserveSeats(_ context.Context, id string, quantity int) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	if e.AvailableSeats < quantity {
		return nil, model.ErrEventFull
	}
	e.AvailableSeats -= quantity
	m.events[id] = e
	return &e, nil
}

func (m memEvents) ReleaseSeats(_ context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return model.ErrEventNotFound
	}
	e.AvailableSeats = min(e.TotalSeats, e.AvailableSeats+quantity)
	m.events[id] = e
	return nil
}

// ─── bookings ────────────────────────────────────────────────────────────────

type memBookings struct{ *memStore }

func (m memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[b.EventID]; !ok {
		return model.ErrEventNotFound
	}
	m.bookings[b.ID] = *b
	m.next(b.ID)
	return nil
}

func (m memBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, model.ErrBookingNotFound
	}
	return &b, nil
}

func (m memBookings) GetForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return m.GetByID(ctx, id)
}

func (m memBookings) ListByEmail(_ context.Context, email string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.Email == email {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out, nil
}

func (m memBookings) MarkPaid(_ context.Context, id, transactionID string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMarkPaid != nil {
		return m.failMarkPaid
	}
	b, ok := m.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return model.ErrAlreadyPaid
	}
	for _, other := range m.bookings {
		if other.TransactionID != nil && *other.TransactionID == transactionID {
			return model.ErrDuplicateTransaction
		}
	}
	b.Status, b.Paid, b.TransactionID, b.PaidAt = model.BookingPaid, true, &transactionID, &paidAt
	m.bookings[id] = b
	return nil
}

func (m memBookings) MarkExpired(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return false, nil
	}
	b.Status = model.BookingExpired
	m.bookings[id] = b
	return true, nil
}

func (m memBookings) ListOverdue(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []model.Booking
	for _, b := range m.bookings {
		if b.Status == model.BookingPending && !b.ExpiresAt.After(now) {
			due = append(due, b)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	ids := make([]string, 0, len(due))
	for i, b := range due {
		if i == limit {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// ─── users ───────────────────────────────────────────────────────────────────

type memUsers struct{ *memStore }

func (m memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return model.ErrUserExists
	}
	m.users[u.Email] = *u
	m.next(u.ID)
	return nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (m memUsers) SetRole(_ context.Context, email string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Role = role
	m.users[email] = u
	return nil
}

func (m memUsers) List(context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}

// ─── payments and outbox ─────────────────────────────────────────────────────

type memPayments struct{ *memStore }

func (m memPayments) Create(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.BookingID]; ok {
		return model.ErrAlreadyPaid
	}
	for _, other := range m.payments {
		if other.TransactionID == p.TransactionID {
			return model.ErrDuplicateTransaction
		}
	}
	m.payments[p.BookingID] = *p
	return nil
}

func (m memPayments) GetByBookingID(_ context.Context, bookingID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[bookingID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

type memOutbox struct{ *memStore }

func (m memOutbox) Enqueue(_ context.Context, topic string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEnqueue != nil {
		return m.failEnqueue
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.outbox = append(m.outbox, outboxEntry{Topic: topic, Payload: body})
	return nil
}

// ─── external collaborators ──────────────────────────────────────────────────

type fakeScheduler struct {
	scheduled []model.BookingExpiry
	delays    []time.Duration
	err       error
}

func (f *fakeScheduler) ScheduleExpiry(_ context.Context, msg model.BookingExpiry, delay time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, msg)
	f.delays = append(f.delays, delay)
	return nil
}

type fakeIssuer struct{ now time.Time }

func (f fakeIssuer) Issue(email string) (string, time.Time, error) {
	return "token-for-" + email, f.now.Add(time.Hour), nil
}

type fakeProcessor struct {
	created  []int64
	currency string
	metadata map[string]string
	intents  map[string]*payment.Intent
	lookups  []string
	err      error
}

func (f *fakeProcessor) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, amount)
	f.currency, f.metadata = currency, metadata
	return &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret_abc", Amount: amount, Currency: currency}, nil
}

func (f *fakeProcessor) GetIntent(_ context.Context, id string) (*payment.Intent, error) {
	f.lookups = append(f.lookups, id)
	if f.err != nil {
		return nil, f.err
	}
	intent, ok := f.intents[id]
	if !ok {
		return nil, model.ErrChargeNotConfirmed
	}
	return intent, nil
}

// ─── wiring ──────────────────────────────────────────────────────────────────

type fixture struct {
	store     *memStore
	clock     *testClock
	scheduler *fakeScheduler
	processor *fakeProcessor
	events    *EventService
	bookings  *BookingService
	users     *UserService
	payments  *PaymentService
}

func newFixture() *fixture {
	store := newMemStore()
	clk := newTestClock()
	sched := &fakeScheduler{}
	proc := &fakeProcessor{intents: map[string]*payment.Intent{}}
	log := zerolog.Nop()

	f := &fixture{store: store, clock: clk, scheduler: sched, processor: proc}
	f.events = NewEventService(store, memEvents{store}, clk, Retrier{})
	f.bookings = NewBookingService(BookingDeps{
		Tx:        store,
		Events:    memEvents{store},
		Bookings:  memBookings{store},
		Outbox:    memOutbox{store},
		Scheduler: sched,
		Clock:     clk,
		Log:       log,
	}, 15*time.Minute)
	f.users = NewUserService(memUsers{store}, fakeIssuer{now: epoch}, clk, Retrier{})
	f.payments = NewPaymentService(PaymentDeps{
		Tx:        store,
		Bookings:  memBookings{store},
		Payments:  memPayments{store},
		Outbox:    memOutbox{store},
		Processor: proc,
		Clock:     clk,
		Log:       log,
	}, PaymentConfig{Currency: "USD", ConfirmTimeout: time.Second})
	return f
}

func ptr[T any](v T) *T { return &v }
