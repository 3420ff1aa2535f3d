// Package queue defines the broker payloads and the RabbitMQ publisher and
// consumer that carry them.
package queue

import "time"

// StatusChangedQueue is the durable queue enrollment reviews are published
// to.
const StatusChangedQueue = "enrollment.status_changed"

// StatusChangedEvent is published when an admin confirms or rejects an
// enrollment.  It carries everything the mailer needs so the consumer does
// not query the database.
type StatusChangedEvent struct {
	EnrollmentID uint64    `json:"enrollment_id"`
	EventID      uint64    `json:"event_id"`
	EventName    string    `json:"event_name"`
	Recipient    string    `json:"recipient"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	ChangedAt    time.Time `json:"changed_at"`
}
