package reservation

import (
	"context"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/gateway/googlecalendar"
	"slotbook/internal/repository"
)

// ReservationStore is the persistence surface of the lifecycle manager.
type ReservationStore interface {
	CreateIfCapacity(ctx context.Context, r *domain.Reservation, bucketStart, bucketEnd time.Time, capacity int) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	Save(ctx context.Context, r *domain.Reservation) error
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error
	SetExternalEventID(ctx context.Context, id string, eventID *string) error
	CountInBucket(ctx context.Context, clientID string, start, end time.Time) (int64, error)
	List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error)
}

type BusinessHoursStore interface {
	GetOrCreate(ctx context.Context, clientID string) (*domain.BusinessHours, error)
}

// SyncManager exposes the tenant's calendar sync state and records mirror
// failures as drift on it.
type SyncManager interface {
	ActiveSync(ctx context.Context, clientID string) (*domain.CalendarSync, error)
	MarkError(ctx context.Context, clientID string, cause string) error
}

// CalendarGateway is the mirror slice of the external calendar provider.
type CalendarGateway interface {
	InsertEvent(ctx context.Context, cred domain.Credential, calendarID string, ev googlecalendar.Event) (string, error)
	UpdateEvent(ctx context.Context, cred domain.Credential, calendarID, eventID string, ev googlecalendar.Event) error
	DeleteEvent(ctx context.Context, cred domain.Credential, calendarID, eventID string) error
}

// NotificationRegistrar schedules the tenant's templated emails for a
// freshly booked reservation.
type NotificationRegistrar interface {
	RegisterForReservation(ctx context.Context, r *domain.Reservation) error
}

// EventPublisher pushes lifecycle events to connected admin dashboards.
// Delivery is best-effort.
type EventPublisher interface {
	Publish(clientID, event string, payload any)
}
