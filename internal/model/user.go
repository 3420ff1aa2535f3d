package model

import "time"

// Roles a user can hold.  Anything other than RoleAdmin is treated as an
// ordinary user by the admin gate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a row of the `users` table.  A user always has at least
// one way to sign in: a password digest, a linked Google account, or both.
//
// PasswordHash is tagged json:"-" so a User can be returned from handlers
// without leaking the digest.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash *string   `json:"-"`
	GoogleID     *string   `json:"google_id,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserPatch lists the columns a user may change on their own record.  Nil
// fields are left untouched.
type UserPatch struct {
	Name         *string
	Surname      *string
	Email        *string
	Phone        *string
	PasswordHash *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Surname == nil && p.Email == nil && p.Phone == nil && p.PasswordHash == nil
}
