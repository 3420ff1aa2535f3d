package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/service"
)

// UserStore is the read and delete side of the users table.  Writes go
// through the identity service so passwords are always hashed.
type UserStore interface {
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// UserHandler serves /users CRUD.
type UserHandler struct {
	Users    UserStore
	Identity *service.IdentityService
}

func NewUserHandler(users UserStore, identity *service.IdentityService) *UserHandler {
	return &UserHandler{Users: users, Identity: identity}
}

type updateUserReq struct {
	Name     *string `json:"name"`
	Surname  *string `json:"surname"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

// List: GET /users (admin)
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// Get: GET /users/:id (self or admin)
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := selfOrAdmin(c, id); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update: PUT /users/:id.  Ownership is checked by the identity service.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	claims, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req updateUserReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Identity.UpdateProfile(ctx, claims.UserID, claims.IsAdmin(), id, service.ProfileInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("User with ID %d updated successfully.", id),
		"user":    u,
	})
}

// Delete: DELETE /users/:id (admin).  Users still referenced by events or
// enrollments cannot be removed.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("User with ID %d deleted successfully.", id),
	})
}
