// Package router builds the Echo instance and registers every route with
// its gates.
package router

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/jadpai-enrollment/internal/handler"
	"github.com/iliyamo/jadpai-enrollment/internal/metrics"
	"github.com/iliyamo/jadpai-enrollment/internal/middleware"
	"github.com/iliyamo/jadpai-enrollment/internal/storage"
)

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports field errors under their json (or form) names.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// New returns an Echo instance with the validator and the middleware every
// route shares.  The request logger sits outside Recover so panics are
// logged as 500s.
func New(log *slog.Logger, rec metrics.Recorder) *echo.Echo {
	if rec == nil {
		rec = metrics.Nop{}
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics(rec))
	e.Use(echomw.BodyLimit("8M"))
	return e
}

// RegisterRoutes registers the operational endpoints and the static upload
// directory.  None of them require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, gatherer prometheus.Gatherer, uploadDir string) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}
	if uploadDir != "" {
		e.Static(storage.PublicPrefix, uploadDir)
	}
}

// RegisterUsers registers /users.  The two sign-in routes sit behind
// limiter; registration and sign-in are the only unauthenticated writes.
func RegisterUsers(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, tokens middleware.TokenVerifier, limiter echo.MiddlewareFunc) {
	authn := middleware.Authenticated(tokens)
	admin := middleware.AdminOnly(tokens)

	g := e.Group("/users")
	g.POST("", a.Register)
	g.POST("/auth", a.Login, limiter)
	g.POST("/auth/google", a.GoogleLogin, limiter)
	g.GET("/me", a.Me, authn)

	g.GET("", u.List, admin)
	g.GET("/:id", u.Get, authn)
	g.PUT("/:id", u.Update, authn)
	g.DELETE("/:id", u.Delete, admin)
}

// RegisterEvents registers /events.  Public reads go through cache; admin
// writes purge it through invalidate.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, tokens middleware.TokenVerifier, cache, invalidate echo.MiddlewareFunc) {
	admin := middleware.AdminOnly(tokens)

	g := e.Group("/events")
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)
	g.POST("", h.Create, admin, invalidate)
	g.PUT("/:id", h.Update, admin, invalidate)
	g.DELETE("/:id", h.Delete, admin, invalidate)
	g.GET("/users/:id/not_attending", h.NotAttending, middleware.Authenticated(tokens))
}

// RegisterEnrollments registers /enrollments.  Reviews and deletes change
// the confirmed counts shown in event listings, so they purge the cache too.
func RegisterEnrollments(e *echo.Echo, h *handler.EnrollmentHandler, tokens middleware.TokenVerifier, invalidate echo.MiddlewareFunc) {
	authn := middleware.Authenticated(tokens)
	admin := middleware.AdminOnly(tokens)

	g := e.Group("/enrollments")
	g.POST("", h.Create, authn)
	g.GET("", h.List, admin)
	g.GET("/:id", h.Get, authn)
	g.GET("/users/:id", h.ByUser, authn)
	g.GET("/events/:id", h.ByEvent, admin)
	g.PUT("/:id", h.Update, admin, invalidate)
	g.DELETE("/:id", h.Delete, admin, invalidate)
}
