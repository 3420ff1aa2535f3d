package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/service"
)

// EnrollmentStore is the read and delete side of repository.EnrollmentRepo.
type EnrollmentStore interface {
	List(ctx context.Context) ([]model.Enrollment, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Enrollment, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.EnrollmentWithEvent, error)
	GetByID(ctx context.Context, id uint64) (model.Enrollment, error)
	Delete(ctx context.Context, id uint64) error
}

// EnrollmentHandler serves /enrollments.  Creation and review go through
// the enrollment service; plain reads hit the store.
type EnrollmentHandler struct {
	Enrollments EnrollmentStore
	Service     *service.EnrollmentService
}

func NewEnrollmentHandler(store EnrollmentStore, svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{Enrollments: store, Service: svc}
}

type enrollReq struct {
	Name    string `form:"name" validate:"required"`
	Phone   string `form:"phone" validate:"required"`
	Email   string `form:"email" validate:"required,email"`
	EventID uint64 `form:"eventId" validate:"required"`
	UserID  uint64 `form:"userId"`
}

type reviewReq struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Status *string `json:"status" validate:"omitempty,oneof=pending confirmed rejected"`
}

// Create: POST /enrollments, multipart with a "picture" image.
func (h *EnrollmentHandler) Create(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req enrollReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	// A missing file leaves picture nil; the service reports it.
	picture, err := c.FormFile(service.EvidenceField)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return respondError(c, apperror.Validation("invalid multipart body"))
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	id, err := h.Service.Enroll(ctx, claims.UserID, claims.IsAdmin(), service.EnrollInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		EventID: req.EventID,
		UserID:  req.UserID,
	}, picture)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Enrollment created successfully",
		"id":      id,
	})
}

// List: GET /enrollments (admin)
func (h *EnrollmentHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	list, err := h.Enrollments.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNilEnrollments(list))
}

// Get: GET /enrollments/:id.  Visible to its owner and to admins.
func (h *EnrollmentHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	e, err := h.Enrollments.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if err := selfOrAdmin(c, e.UserID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// ByUser: GET /enrollments/users/:id, each with its event nested.  A user
// with no enrollments is a 404.
func (h *EnrollmentHandler) ByUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := selfOrAdmin(c, id); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	list, err := h.Enrollments.ListByUser(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if len(list) == 0 {
		return respondError(c, fmt.Errorf("enrollments of user %d: %w", id, apperror.ErrNotFound))
	}
	return c.JSON(http.StatusOK, list)
}

// ByEvent: GET /enrollments/events/:id (admin)
func (h *EnrollmentHandler) ByEvent(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	list, err := h.Enrollments.ListByEvent(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNilEnrollments(list))
}

// Update: PUT /enrollments/:id (admin).  A status change to confirmed or
// rejected emails the enrollee in the background.
func (h *EnrollmentHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req reviewReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	e, err := h.Service.Review(ctx, id, model.EnrollmentPatch{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Status: req.Status,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    fmt.Sprintf("Enrollment with ID %d updated successfully.", id),
		"enrollment": e,
	})
}

// Delete: DELETE /enrollments/:id (admin)
func (h *EnrollmentHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Enrollments.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Enrollment with ID %d deleted successfully.", id),
	})
}

func nonNilEnrollments(list []model.Enrollment) []model.Enrollment {
	if list == nil {
		return []model.Enrollment{}
	}
	return list
}
