package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"slotbook/internal/domain"

	"gorm.io/gorm"
)

type BusinessHoursRepository struct {
	db *gorm.DB
}

func NewBusinessHoursRepository(db *gorm.DB) *BusinessHoursRepository {
	return &BusinessHoursRepository{db: db}
}

type businessHoursModel struct {
	ClientID  string    `gorm:"column:client_id;primaryKey"`
	Config    string    `gorm:"column:config;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (businessHoursModel) TableName() string { return "business_hours" }

// GetOrCreate returns the tenant's weekly schedule, creating the
// hard-coded default on first access. Records are never deleted.
func (r *BusinessHoursRepository) GetOrCreate(ctx context.Context, clientID string) (*domain.BusinessHours, error) {
	var m businessHoursModel
	err := r.db.WithContext(ctx).First(&m, "client_id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		bh := domain.DefaultBusinessHours(clientID)
		if err := r.Save(ctx, bh); err != nil {
			return nil, err
		}
		return bh, nil
	}
	if err != nil {
		return nil, err
	}

	var bh domain.BusinessHours
	if err := json.Unmarshal([]byte(m.Config), &bh); err != nil {
		return nil, err
	}
	bh.ClientID = m.ClientID
	bh.UpdatedAt = m.UpdatedAt
	return &bh, nil
}

func (r *BusinessHoursRepository) Save(ctx context.Context, bh *domain.BusinessHours) error {
	bh.UpdatedAt = time.Now()
	cfg, err := json.Marshal(bh)
	if err != nil {
		return err
	}
	m := businessHoursModel{
		ClientID:  bh.ClientID,
		Config:    string(cfg),
		UpdatedAt: bh.UpdatedAt,
	}
	return r.db.WithContext(ctx).Save(&m).Error
}
