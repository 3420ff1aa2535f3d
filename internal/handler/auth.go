package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/service"
)

// googleTimeout covers the key fetch a first Google verification may need.
const googleTimeout = 10 * time.Second

// AuthHandler serves registration and both sign-in flows.
type AuthHandler struct {
	Identity *service.IdentityService
}

func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
	return &AuthHandler{Identity: identity}
}

// ----- DTOs -----

type registerReq struct {
	Name     string  `json:"name" validate:"required"`
	Surname  string  `json:"surname" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type googleReq struct {
	Credential string `json:"credential" validate:"required"`
}

type tokenResp struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Register: POST /users
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	id, err := h.Identity.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"id":      id,
	})
}

// Login: POST /users/auth.  Unknown email and wrong password share one
// response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	res, err := h.Identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tokenResp{Message: "Login successful", Token: res.Token})
}

// GoogleLogin: POST /users/auth/google.  The body carries the ID token
// Google Identity Services hands the browser as "credential".
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req googleReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), googleTimeout)
	defer cancel()

	res, err := h.Identity.GoogleLogin(ctx, req.Credential)
	if err != nil {
		return respondError(c, err)
	}
	switch res.Outcome {
	case service.OutcomeCreated:
		return c.JSON(http.StatusCreated, tokenResp{Message: "Account created", Token: res.Token})
	case service.OutcomeLinked:
		return c.JSON(http.StatusOK, tokenResp{Message: "Google account linked", Token: res.Token})
	default:
		return c.JSON(http.StatusOK, tokenResp{Message: "Login successful", Token: res.Token})
	}
}

// Me returns the claims of the calling session.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, claims)
}
