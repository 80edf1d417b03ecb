// Package auth issues and verifies access tokens and guards HTTP routes
// according to a per-operation access policy.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/clock"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// Claims are the verified contents of an access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens bound to an email.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
}

// NewIssuer returns an Issuer. secret must be non-empty and ttl positive.
func NewIssuer(secret []byte, ttl time.Duration, issuer string, clk clock.Clock) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Issuer{secret: secret, ttl: ttl, issuer: issuer, clock: clk}, nil
}

// Issue signs a token for email and returns it with its expiry.
func (i *Issuer) Issue(email string) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, expiry and issuer of raw. Any failure wraps
// model.ErrForbidden.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrForbidden, err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", model.ErrForbidden)
	}
	return claims, nil
}
