package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
)

// EventStore is implemented by repository.EventRepo.
type EventStore interface {
	List(ctx context.Context) ([]model.Event, error)
	ListNotAttending(ctx context.Context, userID uint64) ([]model.Event, error)
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	Create(ctx context.Context, ev model.Event) (uint64, error)
	Update(ctx context.Context, id uint64, p model.EventPatch) error
	Delete(ctx context.Context, id uint64) error
}

// EventHandler serves /events.
type EventHandler struct {
	Events EventStore
}

func NewEventHandler(events EventStore) *EventHandler {
	return &EventHandler{Events: events}
}

type createEventReq struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	MaxCap      uint32 `json:"max_cap" validate:"required,min=1"`
}

type updateEventReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MaxCap      *uint32 `json:"max_cap" validate:"omitempty,min=1"`
}

// List: GET /events
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	events, err := h.Events.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNilEvents(events))
}

// Get: GET /events/:id
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Create: POST /events (admin).  The creator is the calling admin.
func (h *EventHandler) Create(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createEventReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return respondError(c, apperror.Validation("name is required"))
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	id, err := h.Events.Create(ctx, model.Event{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		MaxCap:      req.MaxCap,
		CreatorID:   claims.UserID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Event created successfully",
		"id":      id,
	})
}

// Update: PUT /events/:id (admin)
func (h *EventHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req updateEventReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	p := model.EventPatch{Description: req.Description, MaxCap: req.MaxCap}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return respondError(c, apperror.Validation("name must not be empty"))
		}
		p.Name = &name
	}
	if p.Empty() {
		return respondError(c, apperror.Validation("no update data provided"))
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Events.Update(ctx, id, p); err != nil {
		return respondError(c, err)
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Event with ID %d updated successfully.", id),
		"event":   ev,
	})
}

// Delete: DELETE /events/:id (admin)
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Events.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Event with ID %d deleted successfully.", id),
	})
}

// NotAttending: GET /events/users/:id/not_attending lists events the user
// has not enrolled in, newest first.
func (h *EventHandler) NotAttending(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := selfOrAdmin(c, id); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	events, err := h.Events.ListNotAttending(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNilEvents(events))
}

func nonNilEvents(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	return events
}
