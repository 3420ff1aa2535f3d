package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/middleware"
	"github.com/iliyamo/jadpai-enrollment/internal/utils"
)

// dbTimeout bounds the store calls made by one request.
const dbTimeout = 5 * time.Second

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// respondError writes the single outward response for err.  Causes of
// internal errors are logged here and never reach the client.
func respondError(c echo.Context, err error) error {
	he := apperror.ToHTTP(err)
	if he.StatusCode >= 500 {
		slog.Error("request failed",
			"method", c.Request().Method,
			"route", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err,
		)
	}
	return c.JSON(he.StatusCode, he.ToErrorResponse())
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation(name + " must be a positive integer")
	}
	return id, nil
}

// bindValid binds the request into dst and runs the registered validator.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		return apperror.Validation(describeValidation(err))
	}
	return nil
}

// describeValidation turns the first failed rule into a short message.
// Field names come from the json or form tags (see router.NewValidator).
func describeValidation(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// caller returns the claims attached by the authenticated gate.  Routes
// using it are always mounted behind that gate.
func caller(c echo.Context) (*utils.SessionClaims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return nil, apperror.ErrMissingToken
	}
	return claims, nil
}

// selfOrAdmin fails with ErrForbidden unless the caller is user id or an
// admin.
func selfOrAdmin(c echo.Context, id uint64) error {
	claims, err := caller(c)
	if err != nil {
		return err
	}
	if claims.UserID != id && !claims.IsAdmin() {
		return apperror.ErrForbidden
	}
	return nil
}
