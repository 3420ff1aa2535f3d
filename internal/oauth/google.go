// Package oauth verifies third-party identity assertions.  Only Google ID
// tokens are supported; the browser obtains them with Google Identity
// Services and posts them to the login route.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
)

// GoogleIssuer is the OIDC issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// Claims is the verified identity extracted from an assertion.  It lives for
// one request and is never stored.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
}

type googleClaims struct {
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
	GivenName     string   `json:"given_name"`
	FamilyName    string   `json:"family_name"`
}

// flexBool accepts both true and "true"; older Google tokens carry the
// verified flag as a string.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		*b = flexBool(strings.EqualFold(t, "true"))
	default:
		*b = false
	}
	return nil
}

// GoogleVerifier checks signature, issuer, audience and expiry of Google ID
// tokens against Google's published keys.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogle discovers Google's OIDC configuration.  clientID is the expected
// audience and must not be empty.
func NewGoogle(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client id is empty")
	}
	p, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}
	return &GoogleVerifier{verifier: p.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewGoogleWithKeys builds a verifier over a fixed key set.  It is used where
// discovery is not possible, such as tests.
func NewGoogleWithKeys(issuer, clientID string, keys oidc.KeySet) *GoogleVerifier {
	return &GoogleVerifier{verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID})}
}

// Verify validates raw and returns its claims.  Any failure wraps
// apperror.ErrInvalidAssertion and no partial claims are returned.
func (g *GoogleVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: verify id token: %w", apperror.ErrInvalidAssertion, err)
	}
	var gc googleClaims
	if err := idTok.Claims(&gc); err != nil {
		return Claims{}, fmt.Errorf("%w: read claims: %w", apperror.ErrInvalidAssertion, err)
	}
	if idTok.Subject == "" || gc.Email == "" {
		return Claims{}, fmt.Errorf("%w: subject or email missing", apperror.ErrInvalidAssertion)
	}
	return Claims{
		Subject:       idTok.Subject,
		Email:         gc.Email,
		EmailVerified: bool(gc.EmailVerified),
		Name:          gc.Name,
		GivenName:     gc.GivenName,
		FamilyName:    gc.FamilyName,
	}, nil
}

// SplitName derives a (name, surname) pair.  The explicit given/family claims
// win; otherwise the first word of the display name is the name and the rest
// the surname.  When everything is empty the local part of email is used.
func (c Claims) SplitName() (string, string) {
	if c.GivenName != "" {
		return c.GivenName, c.FamilyName
	}
	fields := strings.Fields(c.Name)
	switch len(fields) {
	case 0:
		local, _, _ := strings.Cut(c.Email, "@")
		return local, ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
