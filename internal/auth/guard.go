package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(raw string) (*Claims, error)
}

// RoleResolver looks up the role of a registered user.
type RoleResolver interface {
	RoleOf(ctx context.Context, email string) (model.Role, error)
}

// ErrorWriter renders an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Guard enforces a Policy on HTTP handlers.
type Guard struct {
	verifier Verifier
	roles    RoleResolver
	policy   Policy
	onError  ErrorWriter
}

// NewGuard constructs a Guard. onError receives errors wrapping
// model.ErrUnauthenticated or model.ErrForbidden, or a lookup failure.
func NewGuard(verifier Verifier, roles RoleResolver, policy Policy, onError ErrorWriter) *Guard {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			status := http.StatusForbidden
			if errors.Is(err, model.ErrUnauthenticated) {
				status = http.StatusUnauthorized
			}
			http.Error(w, err.Error(), status)
		}
	}
	return &Guard{verifier: verifier, roles: roles, policy: policy, onError: onError}
}

// Require returns middleware enforcing the access the policy assigns to op.
func (g *Guard) Require(op Operation) func(http.Handler) http.Handler {
	access := g.policy.Access(op)
	return func(next http.Handler) http.Handler {
		if access == Public {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.authenticate(r)
			if err != nil {
				g.onError(w, r, err)
				return
			}
			if access == Organizer {
				if err := g.authorizeOrganizer(r.Context(), claims.Email); err != nil {
					g.onError(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func (g *Guard) authenticate(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, model.ErrUnauthenticated
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, fmt.Errorf("%w: malformed authorization header", model.ErrUnauthenticated)
	}
	return g.verifier.Verify(token)
}

func (g *Guard) authorizeOrganizer(ctx context.Context, email string) error {
	if g.roles == nil {
		return fmt.Errorf("%w: no role directory", model.ErrForbidden)
	}
	role, err := g.roles.RoleOf(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%w: unknown user", model.ErrForbidden)
		}
		return err
	}
	if !role.CanOrganize() {
		return fmt.Errorf("%w: organizer role required", model.ErrForbidden)
	}
	return nil
}
