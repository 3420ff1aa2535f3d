package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/utils"
)

// TokenVerifier checks a raw session token.
type TokenVerifier interface {
	Verify(raw string) (*utils.SessionClaims, error)
}

// Authenticated returns a middleware that requires a valid
// "Authorization: Bearer <token>" header.  A missing or malformed header
// fails with MissingToken; a token that does not verify fails with
// InvalidToken.  On success the claims are stored on the context for
// ClaimsFrom, and "user_id" and "role" are set for code that only needs
// those.
func Authenticated(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return deny(c, apperror.ErrMissingToken)
			}
			claims, err := v.Verify(raw)
			if err != nil {
				return deny(c, apperror.ErrInvalidToken)
			}
			c.Set(ctxClaims, claims)
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header value.  The
// scheme is matched exactly as "Bearer ".
func bearerToken(header string) (string, bool) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func deny(c echo.Context, err error) error {
	he := apperror.ToHTTP(err)
	return c.JSON(he.StatusCode, he.ToErrorResponse())
}
