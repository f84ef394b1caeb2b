package repository

import (
	"context"
	"errors"
	"time"

	"slotbook/internal/domain"

	"gorm.io/gorm"
)

type CalendarSyncRepository struct {
	db *gorm.DB
}

func NewCalendarSyncRepository(db *gorm.DB) *CalendarSyncRepository {
	return &CalendarSyncRepository{db: db}
}

type calendarSyncModel struct {
	ClientID     string     `gorm:"column:client_id;primaryKey"`
	CalendarID   string     `gorm:"column:calendar_id"`
	SyncEnabled  bool       `gorm:"column:sync_enabled"`
	SyncStatus   string     `gorm:"column:sync_status"`
	LastSyncTime *time.Time `gorm:"column:last_sync_time"`
	AccessToken  string     `gorm:"column:access_token"`
	RefreshToken string     `gorm:"column:refresh_token"`
	TokenExpiry  time.Time  `gorm:"column:token_expiry"`
	LastError    string     `gorm:"column:last_error"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (calendarSyncModel) TableName() string { return "calendar_syncs" }

func toDomainSync(m calendarSyncModel) *domain.CalendarSync {
	return &domain.CalendarSync{
		ClientID:     m.ClientID,
		CalendarID:   m.CalendarID,
		SyncEnabled:  m.SyncEnabled,
		SyncStatus:   domain.SyncStatus(m.SyncStatus),
		LastSyncTime: m.LastSyncTime,
		Credential: domain.Credential{
			AccessToken:  m.AccessToken,
			RefreshToken: m.RefreshToken,
			TokenExpiry:  m.TokenExpiry,
		},
		LastError: m.LastError,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// Get returns nil without error when the tenant has never connected a
// calendar; callers treat that as "disconnected".
func (r *CalendarSyncRepository) Get(ctx context.Context, clientID string) (*domain.CalendarSync, error) {
	var m calendarSyncModel
	err := r.db.WithContext(ctx).First(&m, "client_id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainSync(m), nil
}

func (r *CalendarSyncRepository) Upsert(ctx context.Context, s *domain.CalendarSync) error {
	s.UpdatedAt = time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.UpdatedAt
	}
	m := calendarSyncModel{
		ClientID:     s.ClientID,
		CalendarID:   s.CalendarID,
		SyncEnabled:  s.SyncEnabled,
		SyncStatus:   string(s.SyncStatus),
		LastSyncTime: s.LastSyncTime,
		AccessToken:  s.Credential.AccessToken,
		RefreshToken: s.Credential.RefreshToken,
		TokenExpiry:  s.Credential.TokenExpiry,
		LastError:    s.LastError,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	return r.db.WithContext(ctx).Save(&m).Error
}

// SaveCredential refreshes the token pair in place without touching the
// rest of the sync record.
func (r *CalendarSyncRepository) SaveCredential(ctx context.Context, clientID string, cred domain.Credential) error {
	return r.db.WithContext(ctx).Model(&calendarSyncModel{}).
		Where("client_id = ?", clientID).
		Updates(map[string]any{
			"access_token":  cred.AccessToken,
			"refresh_token": cred.RefreshToken,
			"token_expiry":  cred.TokenExpiry,
			"updated_at":    time.Now(),
		}).Error
}

// MarkError flags the sync record after an unrecoverable mirror failure.
func (r *CalendarSyncRepository) MarkError(ctx context.Context, clientID string, cause string) error {
	return r.db.WithContext(ctx).Model(&calendarSyncModel{}).
		Where("client_id = ?", clientID).
		Updates(map[string]any{
			"sync_status": string(domain.SyncError),
			"last_error":  cause,
			"updated_at":  time.Now(),
		}).Error
}

func (r *CalendarSyncRepository) Disconnect(ctx context.Context, clientID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&calendarSyncModel{}).
		Where("client_id = ?", clientID).
		Updates(map[string]any{
			"sync_enabled":   false,
			"sync_status":    string(domain.SyncDisconnected),
			"last_sync_time": now,
			"last_error":     "",
			"updated_at":     now,
		}).Error
}
