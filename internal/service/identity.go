// Package service holds the flows that do more than one store call: identity
// resolution, profile updates and enrollment review.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/metrics"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/oauth"
	"github.com/iliyamo/jadpai-enrollment/internal/repository"
)

// UserStore is the subset of the user repository the identity flows need.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (model.User, error)
	LinkGoogleID(ctx context.Context, id uint64, googleID string) error
	Update(ctx context.Context, id uint64, p model.UserPatch) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenIssuer interface {
	Issue(u model.User) (string, error)
}

// AssertionVerifier validates a third-party identity token.
type AssertionVerifier interface {
	Verify(ctx context.Context, raw string) (oauth.Claims, error)
}

// Login outcomes, used for metrics labels and the response message.
const (
	OutcomeLoggedIn = "logged_in"
	OutcomeLinked   = "linked"
	OutcomeCreated  = "created"
)

// Resolution is the result of matching an external identity to a user row.
// Exactly one of LinkedExisting, LinkedByEmail or Created.
type Resolution interface {
	resolvedUser() model.User
	Outcome() string
}

// LinkedExisting: the Google subject was already linked to the user.
type LinkedExisting struct{ User model.User }

// LinkedByEmail: an unlinked account with the same email was linked.
type LinkedByEmail struct{ User model.User }

// Created: no account matched and a new one was created.
type Created struct{ User model.User }

func (r LinkedExisting) resolvedUser() model.User { return r.User }
func (r LinkedByEmail) resolvedUser() model.User  { return r.User }
func (r Created) resolvedUser() model.User        { return r.User }

func (LinkedExisting) Outcome() string { return OutcomeLoggedIn }
func (LinkedByEmail) Outcome() string  { return OutcomeLinked }
func (Created) Outcome() string        { return OutcomeCreated }

// LoginResult is what every successful sign-in returns.  The token has the
// same shape no matter which path produced it.
type LoginResult struct {
	Token   string
	UserID  uint64
	Outcome string
}

// RegisterInput is a password sign-up request.
type RegisterInput struct {
	Name     string
	Surname  string
	Email    string
	Phone    *string
	Password string
}

// IdentityService implements registration and both sign-in flows.  All of
// its dependencies are read-only after construction.
type IdentityService struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	google  AssertionVerifier
	metrics metrics.Recorder
	log     *slog.Logger

	// dummyDigest is verified against when the email is unknown or the
	// account has no password, so every failure costs one bcrypt comparison.
	dummyDigest string
}

// NewIdentityService wires the flows.  google may be nil, in which case
// external sign-in always fails with ErrInvalidAssertion.
func NewIdentityService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, google AssertionVerifier, rec metrics.Recorder, log *slog.Logger) *IdentityService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		log.Warn("could not precompute dummy digest", "error", err)
	}
	return &IdentityService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		google:      google,
		metrics:     rec,
		log:         log,
		dummyDigest: dummy,
	}
}

// Register creates a password account and returns its id.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (uint64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Surname == "" || in.Email == "" || in.Password == "" {
		return 0, apperror.Validation("name, surname, email and password are required")
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, apperror.Internal("hash password", err)
	}
	id, err := s.users.Create(ctx, model.User{
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: &digest,
		Role:         model.RoleUser,
	})
	if errors.Is(err, apperror.ErrDuplicateEmail) {
		return 0, err
	}
	if err != nil {
		return 0, apperror.Internal("create user", err)
	}
	s.metrics.RecordRegistration()
	return id, nil
}

// Login checks an email and password.  Unknown email, wrong password and
// accounts without a password all fail with the same ErrInvalidCredentials.
func (s *IdentityService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, apperror.Validation("email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		s.hasher.Verify(password, s.dummyDigest)
		s.metrics.RecordLogin("password", "invalid_credentials")
		return LoginResult{}, apperror.ErrInvalidCredentials
	case err != nil:
		return LoginResult{}, apperror.Internal("lookup user", err)
	}
	digest := s.dummyDigest
	if u.HasPassword() {
		digest = *u.PasswordHash
	}
	if !s.hasher.Verify(password, digest) || !u.HasPassword() {
		s.metrics.RecordLogin("password", "invalid_credentials")
		return LoginResult{}, apperror.ErrInvalidCredentials
	}
	return s.finalize(LinkedExisting{User: u}, "password")
}

// GoogleLogin signs in with a Google ID token, linking or creating the
// account as needed.
func (s *IdentityService) GoogleLogin(ctx context.Context, assertion string) (LoginResult, error) {
	if strings.TrimSpace(assertion) == "" {
		return LoginResult{}, apperror.Validation("credential is required")
	}
	if s.google == nil {
		return LoginResult{}, fmt.Errorf("%w: google sign-in is not configured", apperror.ErrInvalidAssertion)
	}

	claims, err := s.google.Verify(ctx, assertion)
	if err != nil {
		s.metrics.RecordLogin("google", "invalid_assertion")
		if !errors.Is(err, apperror.ErrInvalidAssertion) {
			err = fmt.Errorf("%w: %w", apperror.ErrInvalidAssertion, err)
		}
		return LoginResult{}, err
	}
	if !claims.EmailVerified {
		s.metrics.RecordLogin("google", "email_unverified")
		return LoginResult{}, apperror.ErrEmailUnverified
	}

	res, err := s.resolve(ctx, claims)
	if errors.Is(err, errLostRace) {
		// A concurrent sign-in for the same person won; its row is visible now.
		res, err = s.resolve(ctx, claims)
	}
	if err != nil {
		if errors.Is(err, errLostRace) {
			err = apperror.Internal("resolve google identity", err)
		}
		return LoginResult{}, err
	}
	return s.finalize(res, "google")
}

var errLostRace = errors.New("identity changed during resolution")

// resolve picks the user row for claims.  First match wins: linked subject,
// then unlinked account with the same email, then a new account.
func (s *IdentityService) resolve(ctx context.Context, c oauth.Claims) (Resolution, error) {
	u, err := s.users.GetByGoogleID(ctx, c.Subject)
	if err == nil {
		return LinkedExisting{User: u}, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Internal("lookup by google id", err)
	}

	u, err = s.users.GetByEmail(ctx, c.Email)
	switch {
	case err == nil:
		if u.GoogleID != nil {
			// The email belongs to an account bound to a different Google
			// subject.  Neither linking nor creating is possible.
			return nil, fmt.Errorf("google subject does not own %s: %w", u.Email, apperror.ErrDuplicateEmail)
		}
		err = s.users.LinkGoogleID(ctx, u.ID, c.Subject)
		if errors.Is(err, repository.ErrAlreadyLinked) || errors.Is(err, repository.ErrGoogleIDExists) {
			return nil, errLostRace
		}
		if err != nil {
			return nil, apperror.Internal("link google id", err)
		}
		linked, err := s.users.GetByID(ctx, u.ID)
		if err != nil {
			return nil, apperror.Internal("reload linked user", err)
		}
		return LinkedByEmail{User: linked}, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, apperror.Internal("lookup by email", err)
	}

	name, surname := c.SplitName()
	subject := c.Subject
	id, err := s.users.Create(ctx, model.User{
		Name:     name,
		Surname:  surname,
		Email:    c.Email,
		GoogleID: &subject,
		Role:     model.RoleUser,
	})
	if errors.Is(err, apperror.ErrDuplicateEmail) || errors.Is(err, repository.ErrGoogleIDExists) {
		return nil, errLostRace
	}
	if err != nil {
		return nil, apperror.Internal("create google user", err)
	}
	created, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("reload created user", err)
	}
	return Created{User: created}, nil
}

// finalize is the single tail shared by every successful sign-in.
func (s *IdentityService) finalize(r Resolution, method string) (LoginResult, error) {
	u := r.resolvedUser()
	u.PasswordHash = nil
	token, err := s.tokens.Issue(u)
	if err != nil {
		return LoginResult{}, apperror.Internal("issue token", err)
	}
	s.metrics.RecordLogin(method, r.Outcome())
	s.log.Info("user signed in", "user_id", u.ID, "method", method, "outcome", r.Outcome())
	return LoginResult{Token: token, UserID: u.ID, Outcome: r.Outcome()}, nil
}

// ProfileInput holds the fields PUT /users/:id may change.  Nil means keep.
type ProfileInput struct {
	Name     *string
	Surname  *string
	Email    *string
	Phone    *string
	Password *string
}

// UpdateProfile applies in to user id on behalf of the caller.  Only the
// owner or an admin may do so.  A new password is hashed before storage.
func (s *IdentityService) UpdateProfile(ctx context.Context, callerID uint64, callerIsAdmin bool, id uint64, in ProfileInput) (model.User, error) {
	if callerID != id && !callerIsAdmin {
		return model.User{}, apperror.ErrForbidden
	}

	var p model.UserPatch
	for _, f := range []struct {
		label string
		src   *string
		dst   **string
	}{
		{"name", in.Name, &p.Name},
		{"surname", in.Surname, &p.Surname},
		{"email", in.Email, &p.Email},
	} {
		if f.src == nil {
			continue
		}
		v := strings.TrimSpace(*f.src)
		if v == "" {
			return model.User{}, apperror.Validation(f.label + " must not be empty")
		}
		*f.dst = &v
	}
	if in.Phone != nil {
		v := strings.TrimSpace(*in.Phone)
		p.Phone = &v
	}
	if in.Password != nil {
		if *in.Password == "" {
			return model.User{}, apperror.Validation("password must not be empty")
		}
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return model.User{}, apperror.Internal("hash password", err)
		}
		p.PasswordHash = &digest
	}
	if p.Empty() {
		return model.User{}, apperror.Validation("no updatable fields provided")
	}

	if err := s.users.Update(ctx, id, p); err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrDuplicateEmail) {
			return model.User{}, err
		}
		return model.User{}, apperror.Internal("update user", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, apperror.Internal("reload user", err)
	}
	return u, nil
}
