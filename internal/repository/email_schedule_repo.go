package repository

import (
	"context"
	"time"

	"slotbook/internal/domain"

	"gorm.io/gorm"
)

type EmailScheduleRepository struct {
	db *gorm.DB
}

func NewEmailScheduleRepository(db *gorm.DB) *EmailScheduleRepository {
	return &EmailScheduleRepository{db: db}
}

type emailScheduleModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	TemplateID    string    `gorm:"column:template_id;index"`
	ReservationID string    `gorm:"column:reservation_id;index"`
	ScheduledTime time.Time `gorm:"column:scheduled_time;index"`
	Status        string    `gorm:"column:status;index"`
	Attempts      int       `gorm:"column:attempts"`
	LastError     string    `gorm:"column:last_error"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (emailScheduleModel) TableName() string { return "email_schedules" }

func toScheduleModel(s *domain.EmailSchedule) emailScheduleModel {
	return emailScheduleModel{
		ID:            s.ID,
		TemplateID:    s.TemplateID,
		ReservationID: s.ReservationID,
		ScheduledTime: s.ScheduledTime,
		Status:        string(s.Status),
		Attempts:      s.Attempts,
		LastError:     s.LastError,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toDomainSchedule(m emailScheduleModel) domain.EmailSchedule {
	return domain.EmailSchedule{
		ID:            m.ID,
		TemplateID:    m.TemplateID,
		ReservationID: m.ReservationID,
		ScheduledTime: m.ScheduledTime,
		Status:        domain.ScheduleStatus(m.Status),
		Attempts:      m.Attempts,
		LastError:     m.LastError,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r *EmailScheduleRepository) Create(ctx context.Context, s *domain.EmailSchedule) error {
	m := toScheduleModel(s)
	return r.db.WithContext(ctx).Create(&m).Error
}

// DueScheduled returns every schedule still in "scheduled" whose fire
// time is at or before now.
func (r *EmailScheduleRepository) DueScheduled(ctx context.Context, now time.Time) ([]domain.EmailSchedule, error) {
	return r.listWhere(ctx, "status = ? AND scheduled_time <= ?", string(domain.ScheduleScheduled), now)
}

func (r *EmailScheduleRepository) ListFailed(ctx context.Context) ([]domain.EmailSchedule, error) {
	return r.listWhere(ctx, "status = ?", string(domain.ScheduleFailed))
}

func (r *EmailScheduleRepository) ListByReservation(ctx context.Context, reservationID string) ([]domain.EmailSchedule, error) {
	return r.listWhere(ctx, "reservation_id = ?", reservationID)
}

func (r *EmailScheduleRepository) listWhere(ctx context.Context, query string, args ...any) ([]domain.EmailSchedule, error) {
	var models []emailScheduleModel
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("scheduled_time ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.EmailSchedule, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainSchedule(m))
	}
	return out, nil
}

// ReleaseStale returns schedules stuck in "sending" to "scheduled" when
// their claim is older than before. A sender that died between Claim and
// Finish never terminates its row; the next sweep takes it back.
func (r *EmailScheduleRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&emailScheduleModel{}).
		Where("status = ? AND updated_at <= ?", string(domain.ScheduleSending), before).
		Updates(map[string]any{
			"status":     string(domain.ScheduleScheduled),
			"updated_at": time.Now(),
		})
	return tx.RowsAffected, tx.Error
}

// Claim moves a schedule from the expected status into "sending" with a
// conditional update. It reports false when another pass got there first,
// which is what keeps an overlapping sweep and retry from double-sending.
func (r *EmailScheduleRepository) Claim(ctx context.Context, id string, from domain.ScheduleStatus) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&emailScheduleModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":     string(domain.ScheduleSending),
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// Finish records the outcome of one delivery attempt on a claimed
// schedule. A successful retry clears the previous error.
func (r *EmailScheduleRepository) Finish(ctx context.Context, id string, status domain.ScheduleStatus, lastError string) error {
	return r.db.WithContext(ctx).Model(&emailScheduleModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}
