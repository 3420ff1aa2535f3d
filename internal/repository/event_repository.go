package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/jadpai-enrollment/internal/model"
)

// EventRepo provides CRUD operations for events.  Every read includes the
// number of confirmed enrollments so clients can show remaining capacity.
type EventRepo struct{ DB *sql.DB }

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventSelect = `
SELECT
    e.id, e.name, COALESCE(e.description, ''), e.max_cap, e.creator_id, e.created_at,
    (SELECT COUNT(*) FROM enrollments WHERE event_id = e.id AND status = 'confirmed') AS confirmed_count
FROM events AS e`

func scanEvent(row rowScanner) (model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.MaxCap, &ev.CreatorID, &ev.CreatedAt, &ev.ConfirmedCount)
	return ev, err
}

func (r *EventRepo) list(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// List returns all events, newest first.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	return r.list(ctx, eventSelect+" ORDER BY e.id DESC")
}

// ListNotAttending returns the events the user has no enrollment for.
func (r *EventRepo) ListNotAttending(ctx context.Context, userID uint64) ([]model.Event, error) {
	return r.list(ctx, eventSelect+
		" WHERE e.id NOT IN (SELECT event_id FROM enrollments WHERE user_id = ?) ORDER BY e.id DESC", userID)
}

// GetByID returns ErrEventNotFound when the id does not exist.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	ev, err := scanEvent(r.DB.QueryRowContext(ctx, eventSelect+" WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	return ev, err
}

// Create inserts a new event and returns its id.
func (r *EventRepo) Create(ctx context.Context, ev model.Event) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO events (name, description, max_cap, creator_id) VALUES (?, ?, ?, ?)",
		ev.Name, ev.Description, ev.MaxCap, ev.CreatorID)
	if err != nil {
		return 0, translateNoParent(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update applies the non-nil fields of p.
func (r *EventRepo) Update(ctx context.Context, id uint64, p model.EventPatch) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.MaxCap != nil {
		sets = append(sets, "max_cap = ?")
		args = append(args, *p.MaxCap)
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE events SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrEventNotFound)
}

// Delete removes an event that has no enrollments.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return translateReferenced(err)
	}
	return requireAffected(res, ErrEventNotFound)
}
