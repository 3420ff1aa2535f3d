package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/oauth"
	"github.com/iliyamo/jadpai-enrollment/internal/repository"
)

// MemUserStore is an in-memory user repository with the same uniqueness and
// error behaviour as repository.UserRepo.
type MemUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User

	// BeforeLink, when set, runs before LinkGoogleID takes the lock.  Tests
	// use it to simulate a concurrent sign-in.
	BeforeLink func()
	// FailWith, when set, is returned by every call.
	FailWith error
}

func NewMemUserStore() *MemUserStore {
	return &MemUserStore{users: make(map[uint64]model.User)}
}

// Seed inserts u as-is (role and id included) and returns the stored copy.
func (s *MemUserStore) Seed(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.Email = repository.NormalizeEmail(u.Email)
	s.users[u.ID] = u
	return u
}

// Count returns the number of stored users.
func (s *MemUserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *MemUserStore) Create(_ context.Context, u model.User) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	u.Email = repository.NormalizeEmail(u.Email)
	for _, x := range s.users {
		if x.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
		if u.GoogleID != nil && x.GoogleID != nil && *x.GoogleID == *u.GoogleID {
			return 0, repository.ErrGoogleIDExists
		}
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *MemUserStore) find(match func(model.User) bool) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return model.User{}, s.FailWith
	}
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *MemUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	return s.find(func(u model.User) bool { return u.ID == id })
}

func (s *MemUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = repository.NormalizeEmail(email)
	return s.find(func(u model.User) bool { return u.Email == email })
}

func (s *MemUserStore) GetByGoogleID(_ context.Context, googleID string) (model.User, error) {
	return s.find(func(u model.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (s *MemUserStore) LinkGoogleID(_ context.Context, id uint64, googleID string) error {
	if s.BeforeLink != nil {
		s.BeforeLink()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for _, x := range s.users {
		if x.GoogleID != nil && *x.GoogleID == googleID && x.ID != id {
			return repository.ErrGoogleIDExists
		}
	}
	u, ok := s.users[id]
	if !ok || u.GoogleID != nil {
		return repository.ErrAlreadyLinked
	}
	g := googleID
	u.GoogleID = &g
	s.users[id] = u
	return nil
}

func (s *MemUserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemUserStore) Update(_ context.Context, id uint64, p model.UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if p.Email != nil {
		email := repository.NormalizeEmail(*p.Email)
		for _, x := range s.users {
			if x.ID != id && x.Email == email {
				return repository.ErrEmailExists
			}
		}
		u.Email = email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Surname != nil {
		u.Surname = *p.Surname
	}
	if p.Phone != nil {
		v := *p.Phone
		u.Phone = &v
	}
	if p.PasswordHash != nil {
		v := *p.PasswordHash
		u.PasswordHash = &v
	}
	s.users[id] = u
	return nil
}

func (s *MemUserStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// FakeVerifier resolves assertions from a fixed table.  Unknown assertions
// fail the way a bad signature would.
type FakeVerifier map[string]oauth.Claims

func (f FakeVerifier) Verify(_ context.Context, raw string) (oauth.Claims, error) {
	c, ok := f[raw]
	if !ok {
		return oauth.Claims{}, errBadAssertion
	}
	return c, nil
}

var errBadAssertion = errors.New("token signature is invalid")
