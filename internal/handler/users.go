package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// registerUser handles POST /users
// A second registration of the same email is not an error.
func (h *handlers) registerUser(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, created, err := h.cfg.Users.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, model.AlreadyRegisteredResponse{Status: "200", Message: "Already in db"})
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// listUsers handles GET /users
func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.cfg.Users.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// issueToken handles GET /jwt?email=
func (h *handlers) issueToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.cfg.Users.IssueToken(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}
