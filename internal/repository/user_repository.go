package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/jadpai-enrollment/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,surname,email,phone,password_hash,google_id,role,created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                     model.User
		phone, hash, googleID sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &phone, &hash, &googleID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Phone = nullToPtr(phone)
	u.PasswordHash = nullToPtr(hash)
	u.GoogleID = nullToPtr(googleID)
	return u, nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// NormalizeEmail is the canonical form stored in users.email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u and returns its ID.  Role defaults to "user".
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	role := u.Role
	if role == "" {
		role = model.RoleUser
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, surname, email, phone, password_hash, google_id, role) VALUES (?,?,?,?,?,?,?)",
		u.Name, u.Surname, NormalizeEmail(u.Email), u.Phone, u.PasswordHash, u.GoogleID, role)
	if err != nil {
		return 0, translateDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByGoogleID fetches the user linked to a Google subject.
func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE google_id=? LIMIT 1", googleID)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// LinkGoogleID sets google_id on a row that has none yet.  The update is
// conditional so two concurrent logins cannot both claim the same row; the
// loser gets ErrAlreadyLinked.
func (r *UserRepo) LinkGoogleID(ctx context.Context, id uint64, googleID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET google_id=? WHERE id=? AND google_id IS NULL",
		googleID, id)
	if err != nil {
		return translateDuplicate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyLinked
	}
	return nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update applies the non-nil fields of p.  The caller guarantees p is not
// empty.
func (r *UserRepo) Update(ctx context.Context, id uint64, p model.UserPatch) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Surname != nil {
		sets = append(sets, "surname=?")
		args = append(args, *p.Surname)
	}
	if p.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, NormalizeEmail(*p.Email))
	}
	if p.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, *p.Phone)
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *p.PasswordHash)
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	if err != nil {
		return translateDuplicate(err)
	}
	return requireAffected(res, ErrUserNotFound)
}

// Delete removes a user.  Users referenced by events or enrollments cannot be
// deleted.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return translateReferenced(err)
	}
	return requireAffected(res, ErrUserNotFound)
}

// requireAffected returns notFound when res touched no row.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
