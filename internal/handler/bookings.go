package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/auth"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// listBookings handles GET /bookings?email=
// The email defaults to the caller's and must match it.
func (h *handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	caller := auth.EmailFromContext(r.Context())
	bookings, err := h.cfg.Bookings.ListByEmail(r.Context(), caller, r.URL.Query().Get("email"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// createBooking handles POST /bookings
// Reserves seats for the caller; the seat count is decremented server-side.
func (h *handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	booking, err := h.cfg.Bookings.Create(r.Context(), auth.EmailFromContext(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// getBooking handles GET /bookings/{id}
func (h *handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.cfg.Bookings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
