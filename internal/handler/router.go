package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/auth"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds everything the router needs.
type Config struct {
	Events   EventService
	Bookings BookingService
	Users    UserService
	Payments PaymentService
	Verifier auth.Verifier
	Health   Pinger
	Policy   auth.Policy
	Origins  []string
	Log      zerolog.Logger
}

// NewRouter builds the canonical route table. Every route is registered
// with an operation name and guarded according to the access policy.
func NewRouter(cfg Config) http.Handler {
	guard := auth.NewGuard(cfg.Verifier, cfg.Users, cfg.Policy, respondError)
	h := &handlers{cfg: cfg}

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Log))         // structured access log
	r.Use(CORS(cfg.Origins))

	r.NotFound(errRouteNotFound)
	r.MethodNotAllowed(errMethodNotAllowed)

	route := func(method, pattern string, op auth.Operation, fn http.HandlerFunc) {
		r.With(guard.Require(op)).Method(method, pattern, fn)
	}

	r.Get("/", h.root)
	route(http.MethodGet, "/health", auth.OpHealth, h.health)

	route(http.MethodGet, "/events", auth.OpListEvents, h.listEvents)
	route(http.MethodGet, "/events/{id}", auth.OpGetEvent, h.getEvent)
	route(http.MethodPost, "/events", auth.OpCreateEvent, h.createEvent)
	route(http.MethodPatch, "/events/{id}", auth.OpUpdateEvent, h.updateEvent)
	route(http.MethodDelete, "/events/{id}", auth.OpDeleteEvent, h.deleteEvent)

	route(http.MethodGet, "/bookings", auth.OpListBookings, h.listBookings)
	route(http.MethodPost, "/bookings", auth.OpCreateBooking, h.createBooking)
	route(http.MethodGet, "/bookings/{id}", auth.OpGetBooking, h.getBooking)

	route(http.MethodPost, "/users", auth.OpRegisterUser, h.registerUser)
	route(http.MethodGet, "/users", auth.OpListUsers, h.listUsers)
	route(http.MethodGet, "/jwt", auth.OpIssueToken, h.issueToken)

	route(http.MethodPost, "/create-payment-intent", auth.OpCreatePaymentIntent, h.createPaymentIntent)
	route(http.MethodPost, "/payments", auth.OpConfirmPayment, h.confirmPayment)

	return r
}

type handlers struct {
	cfg Config
}

func (h *handlers) root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Theater Seat Server."))
}

// health handles GET /health
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Health != nil {
		if err := h.cfg.Health.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
