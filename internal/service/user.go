package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/clock"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/validator"
)

// UserService manages the user directory and issues access tokens.
type UserService struct {
	users  UserStore
	issuer TokenIssuer
	clock  clock.Clock
	retry  Retrier
}

// NewUserService constructs a UserService.
func NewUserService(users UserStore, issuer TokenIssuer, clk clock.Clock, retry Retrier) *UserService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &UserService{users: users, issuer: issuer, clock: clk, retry: retry}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register adds a user unless the email is already known. It returns the
// stored user and whether this call created it.
func (s *UserService) Register(ctx context.Context, req model.RegisterUserRequest) (*model.User, bool, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.Validate(ctx, req); err != nil {
		return nil, false, err
	}

	existing, err := s.lookup(ctx, req.Email)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, model.ErrNotFound):
		return nil, false, fmt.Errorf("register user: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		ID:        model.NewObjectID(now),
		Email:     req.Email,
		Name:      req.Name,
		Role:      model.RoleAttendee,
		CreatedAt: now,
	}

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	})
	if errors.Is(err, model.ErrUserExists) {
		// Lost a race with a concurrent registration of the same email.
		existing, lerr := s.lookup(ctx, req.Email)
		if lerr != nil {
			return nil, false, fmt.Errorf("register user: %w", lerr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("register user: %w", err)
	}
	return user, true, nil
}

// Grant sets the role of a user, registering the user first when the email
// is unknown. It is an operator action and is not exposed over HTTP.
func (s *UserService) Grant(ctx context.Context, req model.GrantRoleRequest) (*model.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validator.Validate(ctx, req); err != nil {
		return nil, err
	}

	user, _, err := s.Register(ctx, model.RegisterUserRequest{Email: req.Email})
	if err != nil {
		return nil, fmt.Errorf("grant role: %w", err)
	}
	if user.Role == req.Role {
		return user, nil
	}
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.users.SetRole(ctx, req.Email, req.Role)
	})
	if err != nil {
		return nil, fmt.Errorf("grant role: %w", err)
	}
	user.Role = req.Role
	return user, nil
}

// List returns every registered user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		users, err = s.users.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// IssueToken signs an access token for a registered user.
func (s *UserService) IssueToken(ctx context.Context, email string) (*model.TokenResponse, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, &model.ValidationError{Field: "email", Reason: "is required"}
	}

	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	token, expiresAt, err := s.issuer.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.TokenResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// RoleOf returns the role of a registered user.
func (s *UserService) RoleOf(ctx context.Context, email string) (model.Role, error) {
	user, err := s.lookup(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *UserService) lookup(ctx context.Context, email string) (*model.User, error) {
	var user *model.User
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByEmail(ctx, email)
		return err
	})
	return user, err
}
