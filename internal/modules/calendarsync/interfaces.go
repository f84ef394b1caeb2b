package calendarsync

import (
	"context"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/gateway/googlecalendar"
)

type SyncStore interface {
	Get(ctx context.Context, clientID string) (*domain.CalendarSync, error)
	Upsert(ctx context.Context, s *domain.CalendarSync) error
	SaveCredential(ctx context.Context, clientID string, cred domain.Credential) error
	MarkError(ctx context.Context, clientID string, cause string) error
	Disconnect(ctx context.Context, clientID string) error
}

type BusinessHoursStore interface {
	GetOrCreate(ctx context.Context, clientID string) (*domain.BusinessHours, error)
	Save(ctx context.Context, h *domain.BusinessHours) error
}

type OAuthGateway interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (domain.Credential, error)
	RefreshCredential(ctx context.Context, refreshToken string) (domain.Credential, error)
	PrimaryCalendar(ctx context.Context, cred domain.Credential) (string, error)
	ListBusyIntervals(ctx context.Context, cred domain.Credential, calendarID string, start, end time.Time) ([]googlecalendar.Interval, error)
}
