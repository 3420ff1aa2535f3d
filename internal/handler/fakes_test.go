package handler_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/queue"
	"github.com/iliyamo/jadpai-enrollment/internal/repository"
)

type memEvents struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Event
}

func newMemEvents() *memEvents { return &memEvents{rows: map[uint64]model.Event{}} }

func (m *memEvents) List(context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0, len(m.rows))
	for _, ev := range m.rows {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memEvents) ListNotAttending(ctx context.Context, _ uint64) ([]model.Event, error) {
	return m.List(ctx)
}

func (m *memEvents) GetByID(_ context.Context, id uint64) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.rows[id]
	if !ok {
		return model.Event{}, repository.ErrEventNotFound
	}
	return ev, nil
}

func (m *memEvents) Create(_ context.Context, ev model.Event) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	ev.CreatedAt = time.Now().UTC()
	m.rows[ev.ID] = ev
	return ev.ID, nil
}

func (m *memEvents) Update(_ context.Context, id uint64, p model.EventPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.rows[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if p.Name != nil {
		ev.Name = *p.Name
	}
	if p.Description != nil {
		ev.Description = *p.Description
	}
	if p.MaxCap != nil {
		ev.MaxCap = *p.MaxCap
	}
	m.rows[id] = ev
	return nil
}

func (m *memEvents) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(m.rows, id)
	return nil
}

type memEnrollments struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Enrollment
	events *memEvents
}

func newMemEnrollments() *memEnrollments {
	return &memEnrollments{rows: map[uint64]model.Enrollment{}}
}

func (m *memEnrollments) filter(keep func(model.Enrollment) bool) []model.Enrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Enrollment
	for _, e := range m.rows {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memEnrollments) List(context.Context) ([]model.Enrollment, error) {
	return m.filter(func(model.Enrollment) bool { return true }), nil
}

func (m *memEnrollments) ListByEvent(_ context.Context, eventID uint64) ([]model.Enrollment, error) {
	return m.filter(func(e model.Enrollment) bool { return e.EventID == eventID }), nil
}

func (m *memEnrollments) ListByUser(ctx context.Context, userID uint64) ([]model.EnrollmentWithEvent, error) {
	var out []model.EnrollmentWithEvent
	for _, e := range m.filter(func(e model.Enrollment) bool { return e.UserID == userID }) {
		ev, _ := m.events.GetByID(ctx, e.EventID)
		out = append(out, model.EnrollmentWithEvent{Enrollment: e, Event: ev})
	}
	return out, nil
}

func (m *memEnrollments) GetByID(_ context.Context, id uint64) (model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return model.Enrollment{}, repository.ErrEnrollmentNotFound
	}
	return e, nil
}

func (m *memEnrollments) Create(_ context.Context, e model.Enrollment) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	e.Status = model.EnrollmentPending
	e.EnrollDate = time.Now().UTC()
	e.UpdateTimestamp = e.EnrollDate
	m.rows[e.ID] = e
	return e.ID, nil
}

func (m *memEnrollments) Update(_ context.Context, id uint64, p model.EnrollmentPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return repository.ErrEnrollmentNotFound
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Phone != nil {
		e.Phone = *p.Phone
	}
	if p.Email != nil {
		e.Email = *p.Email
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	m.rows[id] = e
	return nil
}

func (m *memEnrollments) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrEnrollmentNotFound
	}
	delete(m.rows, id)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []queue.StatusChangedEvent
}

func (r *recordingNotifier) PublishStatusChanged(_ context.Context, ev queue.StatusChangedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, ev)
	return nil
}

func (r *recordingNotifier) events() []queue.StatusChangedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.StatusChangedEvent(nil), r.sent...)
}
