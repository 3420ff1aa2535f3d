package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
)

// SessionClaims is the user snapshot carried by a session token.  It is taken
// at issuance and never refreshed, so a role change only shows up on the
// next login.
type SessionClaims struct {
	UserID  uint64 `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the snapshot carries the admin role.
func (c SessionClaims) IsAdmin() bool { return c.Role == model.RoleAdmin }

// TokenIssuer signs and verifies HS256 session tokens with a single
// process-wide secret.  It holds no mutable state and is safe for concurrent
// use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer.  The secret is copied.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.  Tests use
// it to move past expiry without sleeping.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *t
	cp.now = now
	return &cp
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue signs a token over u's public attributes.  The password digest is
// never part of the claims.
func (t *TokenIssuer) Issue(u model.User) (string, error) {
	now := t.now().UTC()
	phone := ""
	if u.Phone != nil {
		phone = *u.Phone
	}
	claims := SessionClaims{
		UserID:  u.ID,
		Name:    u.Name,
		Surname: u.Surname,
		Email:   u.Email,
		Phone:   phone,
		Role:    u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded
// claims.  Every failure wraps apperror.ErrInvalidToken.
func (t *TokenIssuer) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, apperror.ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, errors.New("missing user id"))
	}
	return claims, nil
}
