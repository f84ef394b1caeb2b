package repository

import (
	"context"
	"encoding/json"
	"time"

	"slotbook/internal/domain"

	"gorm.io/gorm"
)

type EmailTemplateRepository struct {
	db *gorm.DB
}

func NewEmailTemplateRepository(db *gorm.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

type emailTemplateModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	ClientID  string    `gorm:"column:client_id;index"`
	Name      string    `gorm:"column:name"`
	Type      string    `gorm:"column:type"`
	Subject   string    `gorm:"column:subject"`
	Body      string    `gorm:"column:body;type:text"`
	Timing    string    `gorm:"column:timing"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (emailTemplateModel) TableName() string { return "email_templates" }

func toTemplateModel(t *domain.EmailTemplate) emailTemplateModel {
	timing, _ := json.Marshal(t.Timing)
	return emailTemplateModel{
		ID:        t.ID,
		ClientID:  t.ClientID,
		Name:      t.Name,
		Type:      string(t.Type),
		Subject:   t.Subject,
		Body:      t.Body,
		Timing:    string(timing),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toDomainTemplate(m emailTemplateModel) *domain.EmailTemplate {
	t := &domain.EmailTemplate{
		ID:        m.ID,
		ClientID:  m.ClientID,
		Name:      m.Name,
		Type:      domain.TemplateType(m.Type),
		Subject:   m.Subject,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	_ = json.Unmarshal([]byte(m.Timing), &t.Timing)
	return t
}

func (r *EmailTemplateRepository) Create(ctx context.Context, t *domain.EmailTemplate) error {
	m := toTemplateModel(t)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *EmailTemplateRepository) Save(ctx context.Context, t *domain.EmailTemplate) error {
	t.UpdatedAt = time.Now()
	m := toTemplateModel(t)
	return r.db.WithContext(ctx).Save(&m).Error
}

func (r *EmailTemplateRepository) Delete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Delete(&emailTemplateModel{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *EmailTemplateRepository) GetByID(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	var m emailTemplateModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return toDomainTemplate(m), nil
}

func (r *EmailTemplateRepository) ListByClient(ctx context.Context, clientID string) ([]domain.EmailTemplate, error) {
	var models []emailTemplateModel
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("type ASC, name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.EmailTemplate, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainTemplate(m))
	}
	return out, nil
}
