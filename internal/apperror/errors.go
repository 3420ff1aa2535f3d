// Package apperror is the error taxonomy shared by every layer.  Lower layers
// wrap these sentinels with context; the HTTP boundary maps each one to a
// single outward response with ToHTTP.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks missing or malformed client input.
	ErrValidation = errors.New("validation error")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken is returned when no usable bearer token was sent.
	ErrMissingToken = errors.New("authorization token is required")
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidAssertion is returned when a third-party identity token fails
	// verification.
	ErrInvalidAssertion = errors.New("invalid identity assertion")
	ErrEmailUnverified  = errors.New("email not verified")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	// ErrInUse is returned when a row cannot be deleted because other rows
	// reference it.
	ErrInUse    = errors.New("resource is referenced by other records")
	ErrInternal = errors.New("internal server error")
)

// Validation returns an ErrValidation carrying msg as its detail.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Internal marks err as unexpected.  The cause stays in the chain for
// logging but the response is always the generic 500.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError pairs an ErrorResponse with its status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// IsInternal reports whether err maps to a 500.
func IsInternal(err error) bool {
	return ToHTTP(err).StatusCode == http.StatusInternalServerError
}

// ToHTTP maps an error chain to exactly one outward response.  Validation
// errors keep their wrapped detail since it only describes the caller's own
// input; every other kind uses the sentinel's fixed message.
func ToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrInternal):
		return &HTTPError{http.StatusInternalServerError, ErrInternal.Error(), "INTERNAL_ERROR"}
	case errors.Is(err, ErrValidation):
		return &HTTPError{http.StatusBadRequest, err.Error(), "VALIDATION_ERROR"}
	case errors.Is(err, ErrInUse):
		return &HTTPError{http.StatusBadRequest, ErrInUse.Error(), "IN_USE"}
	case errors.Is(err, ErrDuplicateEmail):
		return &HTTPError{http.StatusConflict, ErrDuplicateEmail.Error(), "DUPLICATE_EMAIL"}
	case errors.Is(err, ErrInvalidCredentials):
		return &HTTPError{http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS"}
	case errors.Is(err, ErrMissingToken):
		return &HTTPError{http.StatusUnauthorized, ErrMissingToken.Error(), "MISSING_TOKEN"}
	case errors.Is(err, ErrInvalidToken):
		return &HTTPError{http.StatusUnauthorized, ErrInvalidToken.Error(), "INVALID_TOKEN"}
	case errors.Is(err, ErrInvalidAssertion):
		return &HTTPError{http.StatusUnauthorized, ErrInvalidAssertion.Error(), "INVALID_ASSERTION"}
	case errors.Is(err, ErrEmailUnverified):
		return &HTTPError{http.StatusUnauthorized, ErrEmailUnverified.Error(), "EMAIL_UNVERIFIED"}
	case errors.Is(err, ErrForbidden):
		return &HTTPError{http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN"}
	case errors.Is(err, ErrNotFound):
		return &HTTPError{http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND"}
	default:
		return &HTTPError{http.StatusInternalServerError, ErrInternal.Error(), "INTERNAL_ERROR"}
	}
}
