package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

type fakeRoles map[string]model.Role

func (f fakeRoles) RoleOf(_ context.Context, email string) (model.Role, error) {
	role, ok := f[email]
	if !ok {
		return "", model.ErrUserNotFound
	}
	return role, nil
}

func TestGuard_Require(t *testing.T) {
	now := time.Now().UTC()
	iss := newTestIssuer(t, now)
	roles := fakeRoles{
		"org@example.com": model.RoleOrganizer,
		"ann@example.com": model.RoleAttendee,
	}
	guard := NewGuard(iss, roles, DefaultPolicy(), nil)

	token := func(email string) string {
		tok, _, err := iss.Issue(email)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return tok
	}

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		op         Operation
		header     string
		wantStatus int
		wantEmail  string
	}{
		{"public without token", OpListEvents, "", http.StatusNoContent, ""},
		{"missing header", OpListBookings, "", http.StatusUnauthorized, ""},
		{"wrong scheme", OpListBookings, "Basic abc", http.StatusUnauthorized, ""},
		{"empty bearer", OpListBookings, "Bearer ", http.StatusUnauthorized, ""},
		{"invalid token", OpListBookings, "Bearer nope", http.StatusForbidden, ""},
		{"authenticated", OpListBookings, "Bearer " + token("ann@example.com"), http.StatusNoContent, "ann@example.com"},
		{"organizer allowed", OpCreateEvent, "Bearer " + token("org@example.com"), http.StatusNoContent, "org@example.com"},
		{"attendee not organizer", OpCreateEvent, "Bearer " + token("ann@example.com"), http.StatusForbidden, ""},
		{"unknown user not organizer", OpDeleteEvent, "Bearer " + token("ghost@example.com"), http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			guard.Require(tt.op)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if seen != tt.wantEmail {
				t.Errorf("email in context = %q, want %q", seen, tt.wantEmail)
			}
		})
	}
}

func TestGuard_CustomErrorWriter(t *testing.T) {
	iss := newTestIssuer(t, time.Now().UTC())
	var got error
	guard := NewGuard(iss, nil, nil, func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	guard.Require(OpListUsers)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if !errors.Is(got, model.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", got)
	}
}
