// Package identity delivers the calling principal for each request.
// Callers authenticate with an HS256 bearer token whose subject is their
// principal.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Validator checks bearer tokens and extracts the caller principal.
type Validator struct {
	secret []byte
	issuer string
}

func NewValidator(secret []byte, issuer string) *Validator {
	return &Validator{secret: secret, issuer: issuer}
}

// Validate parses tokenStr and returns its subject. The token must be
// signed with HS256, carry the configured issuer, and not be expired.
func (v *Validator) Validate(tokenStr string) (domain.Principal, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p := domain.Principal(claims.Subject)
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	return p, nil
}

// Issuer mints bearer tokens for principals.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, now: time.Now}
}

// Issue returns a signed token for p that expires after ttl.
func (i *Issuer) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	now := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   string(p),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
