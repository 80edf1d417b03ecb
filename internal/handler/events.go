package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// listEvents handles GET /events
// Returns all events, most recently created first.
func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.cfg.Events.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// getEvent handles GET /events/{id}
func (h *handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.cfg.Events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// createEvent handles POST /events
func (h *handlers) createEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	event, err := h.cfg.Events.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// updateEvent handles PATCH /events/{id}
// Known fields are updated in place; any other key lands in metadata.
func (h *handlers) updateEvent(w http.ResponseWriter, r *http.Request) {
	var patch model.EventPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	event, err := h.cfg.Events.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// deleteEvent handles DELETE /events/{id}
func (h *handlers) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Events.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
