package calendarsync

import (
	"context"
	"fmt"
	"log"
	"time"

	"slotbook/internal/domain"
)

type Service struct {
	syncs   SyncStore
	hours   BusinessHoursStore
	gateway OAuthGateway
	now     func() time.Time
}

func NewService(syncs SyncStore, hours BusinessHoursStore, gateway OAuthGateway) *Service {
	return &Service{
		syncs:   syncs,
		hours:   hours,
		gateway: gateway,
		now:     time.Now,
	}
}

// ActiveSync returns the tenant's sync record ready for gateway use, or
// nil when mirroring is off. An expired access token is refreshed and
// persisted here so callers never handle OAuth.
func (s *Service) ActiveSync(ctx context.Context, clientID string) (*domain.CalendarSync, error) {
	sync, err := s.syncs.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !sync.Active() {
		return nil, nil
	}

	if sync.Credential.Expired(s.now()) {
		cred, err := s.gateway.RefreshCredential(ctx, sync.Credential.RefreshToken)
		if err != nil {
			s.markError(ctx, clientID, fmt.Sprintf("token refresh: %v", err))
			return nil, err
		}
		if err := s.syncs.SaveCredential(ctx, clientID, cred); err != nil {
			return nil, err
		}
		sync.Credential = cred
	}
	return sync, nil
}

// MarkError records a mirror failure on the sync record. The reservation
// itself is already committed by the time this runs.
func (s *Service) MarkError(ctx context.Context, clientID string, cause string) error {
	return s.syncs.MarkError(ctx, clientID, cause)
}

func (s *Service) markError(ctx context.Context, clientID string, cause string) {
	if err := s.syncs.MarkError(ctx, clientID, cause); err != nil {
		log.Printf("calendarsync: mark error failed client=%s: %v", clientID, err)
	}
}

// AuthURL starts the OAuth consent flow. The tenant id rides in state so
// CompleteSetup knows which record to write.
func (s *Service) AuthURL(clientID string) string {
	return s.gateway.AuthURL(clientID)
}

// CompleteSetup finishes the consent flow: exchanges the code, resolves
// the primary calendar, and activates mirroring for the tenant.
func (s *Service) CompleteSetup(ctx context.Context, clientID, code string) (*domain.CalendarSync, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", ErrValidation)
	}

	cred, err := s.gateway.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	calendarID, err := s.gateway.PrimaryCalendar(ctx, cred)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sync := &domain.CalendarSync{
		ClientID:     clientID,
		CalendarID:   calendarID,
		SyncEnabled:  true,
		SyncStatus:   domain.SyncActive,
		LastSyncTime: &now,
		Credential:   cred,
	}
	if err := s.syncs.Upsert(ctx, sync); err != nil {
		return nil, err
	}
	return sync, nil
}

// Status reports the sync record without its credential. A tenant that
// never connected gets a synthetic disconnected record.
func (s *Service) Status(ctx context.Context, clientID string) (*domain.CalendarSync, error) {
	sync, err := s.syncs.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if sync == nil {
		return &domain.CalendarSync{
			ClientID:   clientID,
			SyncStatus: domain.SyncDisconnected,
		}, nil
	}
	sync.Credential = domain.Credential{}
	return sync, nil
}

func (s *Service) Disconnect(ctx context.Context, clientID string) error {
	sync, err := s.syncs.Get(ctx, clientID)
	if err != nil {
		return err
	}
	if sync == nil {
		return ErrNotConnected
	}
	return s.syncs.Disconnect(ctx, clientID)
}

func (s *Service) GetBusinessHours(ctx context.Context, clientID string) (*domain.BusinessHours, error) {
	return s.hours.GetOrCreate(ctx, clientID)
}

// UpdateBusinessHours replaces the tenant's weekly configuration after
// validating it.
func (s *Service) UpdateBusinessHours(ctx context.Context, h *domain.BusinessHours) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.hours.Save(ctx, h)
}
