package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/mail"
	"slotbook/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	templates    TemplateStore
	schedules    ScheduleStore
	logs         LogStore
	reservations ReservationStore
	sender       mail.Sender

	loc         *time.Location
	mailTimeout time.Duration

	// maxAttempts bounds the retry pass; 0 means retry forever.
	maxAttempts int

	now func() time.Time
}

func NewService(
	templates TemplateStore,
	schedules ScheduleStore,
	logs LogStore,
	reservations ReservationStore,
	sender mail.Sender,
	loc *time.Location,
	mailTimeout time.Duration,
	maxAttempts int,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if mailTimeout <= 0 {
		mailTimeout = 15 * time.Second
	}
	return &Service{
		templates:    templates,
		schedules:    schedules,
		logs:         logs,
		reservations: reservations,
		sender:       sender,
		loc:          loc,
		mailTimeout:  mailTimeout,
		maxAttempts:  maxAttempts,
		now:          time.Now,
	}
}

// RegisterForReservation converts every applicable template of the tenant
// into either an immediate send or a persisted schedule. Confirmation
// templates and fire times already in the past send right away.
func (s *Service) RegisterForReservation(ctx context.Context, r *domain.Reservation) error {
	templates, err := s.templates.ListByClient(ctx, r.ClientID)
	if err != nil {
		return err
	}

	var firstErr error
	for i := range templates {
		tpl := &templates[i]
		if err := s.registerOne(ctx, tpl, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) registerOne(ctx context.Context, tpl *domain.EmailTemplate, r *domain.Reservation) error {
	if tpl.Type == domain.TemplateConfirmation {
		if err := s.deliver(ctx, tpl, r); err != nil {
			log.Printf("mailer: confirmation send failed template=%s reservation=%s error=%v", tpl.ID, r.ID, err)
		}
		return nil
	}

	offset, ok := tpl.Timing.Offset()
	if !ok {
		return fmt.Errorf("%w: template %s has invalid timing unit %q", ErrValidation, tpl.ID, tpl.Timing.Unit)
	}

	fireAt := r.Datetime.Add(-offset)
	if !fireAt.After(s.now()) {
		// Last-minute booking: the window for this notification has
		// already opened, send instead of scheduling.
		if err := s.deliver(ctx, tpl, r); err != nil {
			log.Printf("mailer: immediate send failed template=%s reservation=%s error=%v", tpl.ID, r.ID, err)
		}
		return nil
	}

	schedule := &domain.EmailSchedule{
		ID:            uuid.NewString(),
		TemplateID:    tpl.ID,
		ReservationID: r.ID,
		ScheduledTime: fireAt,
		Status:        domain.ScheduleScheduled,
		CreatedAt:     s.now(),
		UpdatedAt:     s.now(),
	}
	return s.schedules.Create(ctx, schedule)
}

// staleClaimAge is how long a "sending" claim may sit before the sweep
// assumes its owner died and takes the schedule back. Any healthy attempt
// finishes within the mail timeout.
const staleClaimAge = 10 * time.Minute

// SweepDue processes every schedule whose fire time has arrived. Items are
// claimed and handled independently; one failure never aborts the batch.
func (s *Service) SweepDue(ctx context.Context, now time.Time) {
	released, err := s.schedules.ReleaseStale(ctx, now.Add(-staleClaimAge))
	if err != nil {
		log.Printf("mailer: stale release failed: %v", err)
	} else if released > 0 {
		log.Printf("mailer: reclaimed %d stranded schedules", released)
	}

	due, err := s.schedules.DueScheduled(ctx, now)
	if err != nil {
		log.Printf("mailer: due query failed: %v", err)
		return
	}

	for _, schedule := range due {
		s.attempt(ctx, schedule, domain.ScheduleScheduled)
	}
}

// RetryFailed re-attempts every failed schedule. With maxAttempts 0 a
// schedule keeps being retried until it goes through.
func (s *Service) RetryFailed(ctx context.Context) {
	failed, err := s.schedules.ListFailed(ctx)
	if err != nil {
		log.Printf("mailer: failed query failed: %v", err)
		return
	}

	for _, schedule := range failed {
		if s.maxAttempts > 0 && schedule.Attempts >= s.maxAttempts {
			continue
		}
		s.attempt(ctx, schedule, domain.ScheduleFailed)
	}
}

// attempt claims one schedule and drives a single delivery try to a
// terminal status.
func (s *Service) attempt(ctx context.Context, schedule domain.EmailSchedule, from domain.ScheduleStatus) {
	claimed, err := s.schedules.Claim(ctx, schedule.ID, from)
	if err != nil {
		log.Printf("mailer: claim failed schedule=%s: %v", schedule.ID, err)
		return
	}
	if !claimed {
		// Another pass already owns this record.
		return
	}

	tpl, err := s.templates.GetByID(ctx, schedule.TemplateID)
	if err != nil {
		s.finish(ctx, schedule.ID, domain.ScheduleFailed, fmt.Sprintf("load template: %v", err))
		return
	}
	r, err := s.reservations.GetByID(ctx, schedule.ReservationID)
	if err != nil {
		s.finish(ctx, schedule.ID, domain.ScheduleFailed, fmt.Sprintf("load reservation: %v", err))
		return
	}

	if err := s.deliver(ctx, tpl, r); err != nil {
		s.finish(ctx, schedule.ID, domain.ScheduleFailed, err.Error())
		return
	}
	s.finish(ctx, schedule.ID, domain.ScheduleSent, "")
}

func (s *Service) finish(ctx context.Context, id string, status domain.ScheduleStatus, lastError string) {
	if err := s.schedules.Finish(ctx, id, status, lastError); err != nil {
		log.Printf("mailer: finish failed schedule=%s status=%s: %v", id, status, err)
	}
}

// deliver renders the template against the reservation, sends it, and
// appends the audit log entry for the attempt.
func (s *Service) deliver(ctx context.Context, tpl *domain.EmailTemplate, r *domain.Reservation) error {
	subject := Render(tpl.Subject, r, s.loc)
	body := Render(tpl.Body, r, s.loc)

	mctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	sendErr := s.sender.Send(mctx, r.CustomerInfo.Email, subject, body)
	cancel()

	entry := &domain.EmailLog{
		ID:         uuid.NewString(),
		TemplateID: tpl.ID,
		Recipient:  r.CustomerInfo.Email,
		SentAt:     s.now(),
	}
	if r.ID != "" {
		id := r.ID
		entry.ReservationID = &id
	}
	if sendErr != nil {
		entry.Status = domain.LogFailed
		entry.Error = sendErr.Error()
	} else {
		entry.Status = domain.LogSuccess
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		log.Printf("mailer: log append failed template=%s: %v", tpl.ID, err)
	}

	if sendErr != nil {
		return sendErr
	}
	s.recordReminder(ctx, tpl, r)
	return nil
}

// recordReminder marks the delivered notification kind on the persisted
// reservation.
func (s *Service) recordReminder(ctx context.Context, tpl *domain.EmailTemplate, r *domain.Reservation) {
	if r.ID == "" {
		return
	}
	r.RemindersSent = append(r.RemindersSent, domain.ReminderRecord{
		Kind:   string(tpl.Type),
		SentAt: s.now(),
	})
	if err := s.reservations.Save(ctx, r); err != nil {
		log.Printf("mailer: recording reminder failed reservation=%s: %v", r.ID, err)
	}
}

// SendTest exercises rendering and the mail gateway against a synthetic
// reservation, without touching reservation storage.
func (s *Service) SendTest(ctx context.Context, templateID, to string) error {
	tpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	dummy := &domain.Reservation{
		Datetime: s.now(),
		CustomerInfo: domain.CustomerInfo{
			Name:    "Test Customer",
			Email:   to,
			Company: "Example Inc.",
			Phone:   "000-0000-0000",
			Message: "This is a test email.",
		},
	}
	return s.deliver(ctx, tpl, dummy)
}

// --- template management ---

func (s *Service) CreateTemplate(ctx context.Context, tpl *domain.EmailTemplate) error {
	if err := validateTemplate(tpl); err != nil {
		return err
	}
	tpl.ID = uuid.NewString()
	tpl.CreatedAt = s.now()
	tpl.UpdatedAt = tpl.CreatedAt
	return s.templates.Create(ctx, tpl)
}

func (s *Service) UpdateTemplate(ctx context.Context, tpl *domain.EmailTemplate) error {
	if err := validateTemplate(tpl); err != nil {
		return err
	}
	existing, err := s.templates.GetByID(ctx, tpl.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	tpl.CreatedAt = existing.CreatedAt
	return s.templates.Save(ctx, tpl)
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	err := s.templates.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) ListTemplates(ctx context.Context, clientID string) ([]domain.EmailTemplate, error) {
	return s.templates.ListByClient(ctx, clientID)
}

func (s *Service) ListLogs(ctx context.Context, f repository.EmailLogFilter) ([]domain.EmailLog, error) {
	return s.logs.List(ctx, f)
}

func (s *Service) SchedulesForReservation(ctx context.Context, reservationID string) ([]domain.EmailSchedule, error) {
	return s.schedules.ListByReservation(ctx, reservationID)
}

func validateTemplate(tpl *domain.EmailTemplate) error {
	switch tpl.Type {
	case domain.TemplateConfirmation, domain.TemplateReminder, domain.TemplateFollowup:
	default:
		return fmt.Errorf("%w: unknown template type %q", ErrValidation, tpl.Type)
	}
	if tpl.Subject == "" || tpl.Body == "" {
		return fmt.Errorf("%w: subject and body are required", ErrValidation)
	}
	// A negative value fires after the reservation, which is how
	// followups are expressed.
	if tpl.Type != domain.TemplateConfirmation {
		if _, ok := tpl.Timing.Offset(); !ok {
			return fmt.Errorf("%w: timing unit must be minutes, hours or days", ErrValidation)
		}
	}
	return nil
}
