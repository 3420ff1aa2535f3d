// Package repository holds the MySQL data access layer.  The sentinel errors
// below let higher layers distinguish failure scenarios without inspecting
// driver errors.  Each one wraps the matching apperror kind so the HTTP
// boundary maps it without knowing about the repository.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", apperror.ErrNotFound)
	ErrEventNotFound      = fmt.Errorf("event %w", apperror.ErrNotFound)
	ErrEnrollmentNotFound = fmt.Errorf("enrollment %w", apperror.ErrNotFound)
	// ErrEmailExists is returned when the unique email key rejects an insert
	// or update.
	ErrEmailExists = fmt.Errorf("users.email: %w", apperror.ErrDuplicateEmail)
	// ErrGoogleIDExists is returned when another row already holds the
	// Google account id.
	ErrGoogleIDExists = errors.New("google account already linked")
	// ErrAlreadyLinked is returned by LinkGoogleID when the row gained a
	// Google id between the read and the write.
	ErrAlreadyLinked = errors.New("user already linked to a google account")
	// ErrReferenced is returned when a delete is blocked by a foreign key.
	ErrReferenced = fmt.Errorf("delete blocked: %w", apperror.ErrInUse)
	// ErrParentMissing is returned when an insert points at a user or event
	// that does not exist.
	ErrParentMissing = fmt.Errorf("referenced row %w", apperror.ErrNotFound)
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// translateDuplicate maps a unique-key violation on users to the sentinel
// for the offending column.  Other errors are returned unchanged.
func translateDuplicate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		if strings.Contains(me.Message, "google_id") {
			return ErrGoogleIDExists
		}
		return ErrEmailExists
	}
	return err
}

// translateReferenced maps a foreign key violation on delete to ErrReferenced.
func translateReferenced(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlRowIsReferenced {
		return ErrReferenced
	}
	return err
}

// translateNoParent maps a foreign key violation on insert to
// ErrParentMissing.
func translateNoParent(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlNoReferencedRow {
		return ErrParentMissing
	}
	return err
}
