package service

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/metrics"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/queue"
)

type EnrollmentStore interface {
	Create(ctx context.Context, e model.Enrollment) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Enrollment, error)
	Update(ctx context.Context, id uint64, p model.EnrollmentPatch) error
}

type EventReader interface {
	GetByID(ctx context.Context, id uint64) (model.Event, error)
}

// FileStore keeps evidence images.
type FileStore interface {
	Save(field string, fh *multipart.FileHeader) (string, error)
	Remove(public string) error
}

// Notifier hands status changes to the notification pipeline.
type Notifier interface {
	PublishStatusChanged(ctx context.Context, ev queue.StatusChangedEvent) error
}

// EvidenceField is the multipart field holding the evidence image.
const EvidenceField = "picture"

const publishTimeout = 3 * time.Second

// EnrollInput is a new enrollment request.  UserID zero means the caller.
type EnrollInput struct {
	Name    string
	Phone   string
	Email   string
	EventID uint64
	UserID  uint64
}

// EnrollmentService creates enrollments and applies admin reviews.
type EnrollmentService struct {
	enrollments EnrollmentStore
	events      EventReader
	files       FileStore
	notifier    Notifier
	metrics     metrics.Recorder
	log         *slog.Logger
}

// NewEnrollmentService wires the flow.  notifier may be nil, which turns
// notifications off.
func NewEnrollmentService(enrollments EnrollmentStore, events EventReader, files FileStore, notifier Notifier, rec metrics.Recorder, log *slog.Logger) *EnrollmentService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		events:      events,
		files:       files,
		notifier:    notifier,
		metrics:     rec,
		log:         log,
	}
}

// Enroll validates in, stores the evidence image and inserts a pending
// enrollment.  A non-admin can only enroll themselves.
func (s *EnrollmentService) Enroll(ctx context.Context, callerID uint64, callerIsAdmin bool, in EnrollInput, picture *multipart.FileHeader) (uint64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Phone == "" || in.Email == "" || in.EventID == 0 || picture == nil {
		return 0, apperror.Validation("name, phone, email, eventId and picture are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return 0, apperror.Validation("email is not a valid address")
	}
	if in.UserID == 0 {
		in.UserID = callerID
	}
	if in.UserID != callerID && !callerIsAdmin {
		return 0, apperror.ErrForbidden
	}

	if _, err := s.events.GetByID(ctx, in.EventID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, err
		}
		return 0, apperror.Internal("load event", err)
	}

	img, err := s.files.Save(EvidenceField, picture)
	if err != nil {
		return 0, err
	}
	id, err := s.enrollments.Create(ctx, model.Enrollment{
		UserID:          in.UserID,
		EventID:         in.EventID,
		Name:            in.Name,
		Phone:           in.Phone,
		Email:           in.Email,
		EvidenceImgPath: img,
	})
	if err != nil {
		if rmErr := s.files.Remove(img); rmErr != nil {
			s.log.Warn("orphaned upload", "path", img, "error", rmErr)
		}
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, err
		}
		return 0, apperror.Internal("create enrollment", err)
	}
	return id, nil
}

// Review applies an admin's changes to an enrollment.  When the status moves
// to confirmed or rejected the enrollee is notified.  Notification problems
// are logged and counted but never fail the review.
func (s *EnrollmentService) Review(ctx context.Context, id uint64, p model.EnrollmentPatch) (model.Enrollment, error) {
	if p.Empty() {
		return model.Enrollment{}, apperror.Validation("no update data provided")
	}
	if p.Status != nil && !model.ValidEnrollmentStatus(*p.Status) {
		return model.Enrollment{}, apperror.Validation("status must be pending, confirmed or rejected")
	}
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return model.Enrollment{}, apperror.Validation("email is not a valid address")
		}
	}

	before, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Enrollment{}, err
		}
		return model.Enrollment{}, apperror.Internal("load enrollment", err)
	}
	if err := s.enrollments.Update(ctx, id, p); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Enrollment{}, err
		}
		return model.Enrollment{}, apperror.Internal("update enrollment", err)
	}
	after, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return model.Enrollment{}, apperror.Internal("reload enrollment", err)
	}

	if after.Status != before.Status &&
		(after.Status == model.EnrollmentConfirmed || after.Status == model.EnrollmentRejected) {
		s.notify(ctx, after)
	}
	return after, nil
}

func (s *EnrollmentService) notify(ctx context.Context, e model.Enrollment) {
	if s.notifier == nil {
		s.metrics.RecordNotification("disabled")
		return
	}
	ev := queue.StatusChangedEvent{
		EnrollmentID: e.ID,
		EventID:      e.EventID,
		Recipient:    e.Email,
		Name:         e.Name,
		Status:       e.Status,
		ChangedAt:    time.Now().UTC(),
	}
	if event, err := s.events.GetByID(ctx, e.EventID); err == nil {
		ev.EventName = event.Name
	} else {
		s.log.Warn("event lookup for notification failed", "event_id", e.EventID, "error", err)
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.notifier.PublishStatusChanged(pctx, ev); err != nil {
		s.metrics.RecordNotification("failed")
		s.log.Error("publish status change failed", "enrollment_id", e.ID, "status", e.Status, "error", err)
		return
	}
	s.metrics.RecordNotification("published")
}
