package availability

import (
	"context"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/gateway/googlecalendar"
	"slotbook/internal/repository"
)

// BusinessHoursStore resolves a tenant's weekly schedule, creating the
// default on first access.
type BusinessHoursStore interface {
	GetOrCreate(ctx context.Context, clientID string) (*domain.BusinessHours, error)
}

// ReservationStore lists persisted reservations for the booked-count pass.
type ReservationStore interface {
	List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error)
}

// SyncProvider returns the tenant's calendar sync with a usable credential,
// or nil when mirroring is not active for that tenant.
type SyncProvider interface {
	ActiveSync(ctx context.Context, clientID string) (*domain.CalendarSync, error)
}

// BusyIntervalSource is the slice of the external calendar gateway the
// engine needs.
type BusyIntervalSource interface {
	ListBusyIntervals(ctx context.Context, cred domain.Credential, calendarID string, start, end time.Time) ([]googlecalendar.Interval, error)
}
