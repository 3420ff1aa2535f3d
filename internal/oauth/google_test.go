package oauth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
)

const testClientID = "client-123.apps.googleusercontent.com"

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return k
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            GoogleIssuer,
		"aud":            testClientID,
		"sub":            "g123",
		"email":          "a@x.com",
		"email_verified": true,
		"name":           "Ana Maria Lopez",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func verifierFor(key *rsa.PrivateKey) *GoogleVerifier {
	return NewGoogleWithKeys(GoogleIssuer, testClientID,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}})
}

func TestGoogleVerifier_Valid(t *testing.T) {
	key := newKey(t)
	c, err := verifierFor(key).Verify(context.Background(), sign(t, key, baseClaims()))
	require.NoError(t, err)
	assert.Equal(t, "g123", c.Subject)
	assert.Equal(t, "a@x.com", c.Email)
	assert.True(t, c.EmailVerified)
	assert.Equal(t, "Ana Maria Lopez", c.Name)
}

func TestGoogleVerifier_StringVerifiedFlag(t *testing.T) {
	key := newKey(t)
	cl := baseClaims()
	cl["email_verified"] = "false"
	c, err := verifierFor(key).Verify(context.Background(), sign(t, key, cl))
	require.NoError(t, err)
	assert.False(t, c.EmailVerified)
}

func TestGoogleVerifier_Rejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)

	cases := map[string]func() string{
		"wrong audience": func() string {
			cl := baseClaims()
			cl["aud"] = "someone-else"
			return sign(t, key, cl)
		},
		"wrong issuer": func() string {
			cl := baseClaims()
			cl["iss"] = "https://evil.example.com"
			return sign(t, key, cl)
		},
		"expired": func() string {
			cl := baseClaims()
			cl["exp"] = time.Now().Add(-time.Hour).Unix()
			return sign(t, key, cl)
		},
		"foreign key": func() string { return sign(t, other, baseClaims()) },
		"missing email": func() string {
			cl := baseClaims()
			delete(cl, "email")
			return sign(t, key, cl)
		},
		"garbage": func() string { return "not.a.token" },
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := verifierFor(key).Verify(context.Background(), mk())
			assert.ErrorIs(t, err, apperror.ErrInvalidAssertion)
			assert.Equal(t, Claims{}, c)
		})
	}
}

func TestClaims_SplitName(t *testing.T) {
	cases := []struct {
		in            Claims
		name, surname string
	}{
		{Claims{GivenName: "Ana", FamilyName: "Lopez", Name: "ignored"}, "Ana", "Lopez"},
		{Claims{Name: "Ana Maria Lopez"}, "Ana", "Maria Lopez"},
		{Claims{Name: "Cher"}, "Cher", ""},
		{Claims{Email: "solo@x.com"}, "solo", ""},
	}
	for _, tc := range cases {
		n, s := tc.in.SplitName()
		assert.Equal(t, tc.name, n)
		assert.Equal(t, tc.surname, s)
	}
}
