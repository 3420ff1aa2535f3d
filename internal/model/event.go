package model

import "time"

// Event mirrors the `events` table.  ConfirmedCount is not a column; read
// queries compute it from enrollments with status 'confirmed'.
type Event struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	MaxCap         uint32    `json:"max_cap"`
	CreatorID      uint64    `json:"creator_id"`
	CreatedAt      time.Time `json:"created_at"`
	ConfirmedCount uint32    `json:"confirmed_count"`
}

// EventPatch holds the admin-editable event fields.
type EventPatch struct {
	Name        *string
	Description *string
	MaxCap      *uint32
}

func (p EventPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.MaxCap == nil
}
