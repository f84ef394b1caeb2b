package repository

import (
	"context"
	"time"

	"slotbook/internal/domain"

	"gorm.io/gorm"
)

type EmailLogRepository struct {
	db *gorm.DB
}

func NewEmailLogRepository(db *gorm.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

type emailLogModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	TemplateID    string    `gorm:"column:template_id;index"`
	ReservationID *string   `gorm:"column:reservation_id;index"`
	Recipient     string    `gorm:"column:recipient"`
	Status        string    `gorm:"column:status"`
	Error         string    `gorm:"column:error"`
	SentAt        time.Time `gorm:"column:sent_at;index"`
}

func (emailLogModel) TableName() string { return "email_logs" }

// Append writes one send-attempt record. Logs are never updated or
// deleted afterwards.
func (r *EmailLogRepository) Append(ctx context.Context, l *domain.EmailLog) error {
	m := emailLogModel{
		ID:            l.ID,
		TemplateID:    l.TemplateID,
		ReservationID: l.ReservationID,
		Recipient:     l.Recipient,
		Status:        string(l.Status),
		Error:         l.Error,
		SentAt:        l.SentAt,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

type EmailLogFilter struct {
	TemplateID    string
	ReservationID string
	Status        domain.LogStatus
	Limit         int
}

func (r *EmailLogRepository) List(ctx context.Context, f EmailLogFilter) ([]domain.EmailLog, error) {
	q := r.db.WithContext(ctx).Model(&emailLogModel{})
	if f.TemplateID != "" {
		q = q.Where("template_id = ?", f.TemplateID)
	}
	if f.ReservationID != "" {
		q = q.Where("reservation_id = ?", f.ReservationID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var models []emailLogModel
	if err := q.Order("sent_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EmailLog, 0, len(models))
	for _, m := range models {
		out = append(out, domain.EmailLog{
			ID:            m.ID,
			TemplateID:    m.TemplateID,
			ReservationID: m.ReservationID,
			Recipient:     m.Recipient,
			Status:        domain.LogStatus(m.Status),
			Error:         m.Error,
			SentAt:        m.SentAt,
		})
	}
	return out, nil
}
