package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/auth"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// createPaymentIntent handles POST /create-payment-intent
func (h *handlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	resp, err := h.cfg.Payments.CreateIntent(r.Context(), auth.EmailFromContext(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// confirmPayment handles POST /payments
// Records the charge and marks the booking paid in one transaction; the
// payment is returned only after both are committed.
func (h *handlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.cfg.Payments.Confirm(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
