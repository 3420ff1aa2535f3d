package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
)

// RequireRole allows the request only when the authenticated role is one of
// roles.  It must run after Authenticated.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return deny(c, apperror.ErrMissingToken)
			}
			if _, ok := allowed[claims.Role]; !ok {
				return deny(c, apperror.ErrForbidden)
			}
			return next(c)
		}
	}
}

// AdminOnly is Authenticated followed by RequireRole("admin").
func AdminOnly(v TokenVerifier) echo.MiddlewareFunc {
	authn := Authenticated(v)
	authz := RequireRole(model.RoleAdmin)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return authn(authz(next))
	}
}
