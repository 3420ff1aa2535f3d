package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/jadpai-enrollment/internal/model"
)

// EnrollmentRepo persists enrollment requests and their review status.
type EnrollmentRepo struct{ DB *sql.DB }

func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{DB: db} }

const enrollmentColumns = "id, user_id, event_id, name, phone, email, evidence_img_path, status, enroll_date, update_timestamp"

func scanEnrollment(row rowScanner) (model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(&e.ID, &e.UserID, &e.EventID, &e.Name, &e.Phone, &e.Email,
		&e.EvidenceImgPath, &e.Status, &e.EnrollDate, &e.UpdateTimestamp)
	return e, err
}

func (r *EnrollmentRepo) list(ctx context.Context, q string, args ...any) ([]model.Enrollment, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EnrollmentRepo) List(ctx context.Context) ([]model.Enrollment, error) {
	return r.list(ctx, "SELECT "+enrollmentColumns+" FROM enrollments ORDER BY id")
}

func (r *EnrollmentRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Enrollment, error) {
	return r.list(ctx, "SELECT "+enrollmentColumns+" FROM enrollments WHERE event_id = ? ORDER BY id", eventID)
}

func (r *EnrollmentRepo) GetByID(ctx context.Context, id uint64) (model.Enrollment, error) {
	e, err := scanEnrollment(r.DB.QueryRowContext(ctx,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Enrollment{}, ErrEnrollmentNotFound
	}
	return e, err
}

// ListByUser returns the user's enrollments, each nested with its event and
// the event's confirmed count.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.EnrollmentWithEvent, error) {
	const q = `
SELECT
    e.id, e.user_id, e.event_id, e.name, e.phone, e.email, e.evidence_img_path,
    e.status, e.enroll_date, e.update_timestamp,
    v.id, v.name, COALESCE(v.description, ''), v.max_cap, v.creator_id, v.created_at,
    (SELECT COUNT(*) FROM enrollments WHERE event_id = v.id AND status = 'confirmed') AS confirmed_count
FROM enrollments AS e
INNER JOIN events AS v ON e.event_id = v.id
WHERE e.user_id = ?
ORDER BY e.id`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.EnrollmentWithEvent, 0)
	for rows.Next() {
		var d model.EnrollmentWithEvent
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.EventID, &d.Name, &d.Phone, &d.Email, &d.EvidenceImgPath,
			&d.Status, &d.EnrollDate, &d.UpdateTimestamp,
			&d.Event.ID, &d.Event.Name, &d.Event.Description, &d.Event.MaxCap, &d.Event.CreatorID,
			&d.Event.CreatedAt, &d.Event.ConfirmedCount,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Create inserts a pending enrollment and returns its id.
func (r *EnrollmentRepo) Create(ctx context.Context, e model.Enrollment) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO enrollments (user_id, event_id, name, phone, email, evidence_img_path, status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.UserID, e.EventID, e.Name, e.Phone, e.Email, e.EvidenceImgPath, model.EnrollmentPending)
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
func (r *EnrollmentRepo) Update(ctx context.Context, id uint64, p model.EnrollmentPatch) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *p.Phone)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *p.Email)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *p.Status)
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE enrollments SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrEnrollmentNotFound)
}

func (r *EnrollmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM enrollments WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrEnrollmentNotFound)
}
