package mailer

import (
	"context"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/repository"
)

type TemplateStore interface {
	Create(ctx context.Context, t *domain.EmailTemplate) error
	Save(ctx context.Context, t *domain.EmailTemplate) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.EmailTemplate, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.EmailTemplate, error)
}

type ScheduleStore interface {
	Create(ctx context.Context, s *domain.EmailSchedule) error
	DueScheduled(ctx context.Context, now time.Time) ([]domain.EmailSchedule, error)
	ListFailed(ctx context.Context) ([]domain.EmailSchedule, error)
	ListByReservation(ctx context.Context, reservationID string) ([]domain.EmailSchedule, error)
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
	Claim(ctx context.Context, id string, from domain.ScheduleStatus) (bool, error)
	Finish(ctx context.Context, id string, status domain.ScheduleStatus, lastError string) error
}

type LogStore interface {
	Append(ctx context.Context, l *domain.EmailLog) error
	List(ctx context.Context, f repository.EmailLogFilter) ([]domain.EmailLog, error)
}

type ReservationStore interface {
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	Save(ctx context.Context, r *domain.Reservation) error
}
