package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/utils"
)

// Context keys set by Authenticated.
const (
	ctxClaims = "claims"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// ClaimsFrom returns the session claims stored by Authenticated.
func ClaimsFrom(c echo.Context) (*utils.SessionClaims, bool) {
	claims, ok := c.Get(ctxClaims).(*utils.SessionClaims)
	return claims, ok && claims != nil
}

// currentUserID is the authenticated user id as a string, or "anon".
func currentUserID(c echo.Context) string {
	if claims, ok := ClaimsFrom(c); ok {
		return strconv.FormatUint(claims.UserID, 10)
	}
	return "anon"
}
