package model

import "time"

// Enrollment statuses.  Only transitions into confirmed or rejected notify
// the enrollee.
const (
	EnrollmentPending   = "pending"
	EnrollmentConfirmed = "confirmed"
	EnrollmentRejected  = "rejected"
)

// ValidEnrollmentStatus reports whether s is one of the known statuses.
func ValidEnrollmentStatus(s string) bool {
	switch s {
	case EnrollmentPending, EnrollmentConfirmed, EnrollmentRejected:
		return true
	}
	return false
}

// Enrollment mirrors the `enrollments` table.  Name, Email and Phone are the
// contact details given on the request form, which may differ from the
// owning user's profile.
type Enrollment struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	EventID         uint64    `json:"event_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	EvidenceImgPath string    `json:"evidence_img_path"`
	Status          string    `json:"status"`
	EnrollDate      time.Time `json:"enroll_date"`
	UpdateTimestamp time.Time `json:"update_timestamp"`
}

// EnrollmentWithEvent is an enrollment joined with a summary of its event,
// as listed for a single user.
type EnrollmentWithEvent struct {
	Enrollment
	Event Event `json:"event"`
}

// EnrollmentPatch holds the fields an admin may change.  A Status change is
// what triggers the enrollee notification.
type EnrollmentPatch struct {
	Name   *string
	Phone  *string
	Email  *string
	Status *string
}

func (p EnrollmentPatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.Status == nil
}
