package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"slotbook/internal/domain"

	"gorm.io/gorm"
)

// ErrBucketFull is returned by CreateIfCapacity when the target bucket
// already holds capacity non-cancelled reservations.
var ErrBucketFull = errors.New("reservation bucket is full")

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type reservationModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	ClientID        string    `gorm:"column:client_id;index:idx_reservations_client_datetime"`
	Datetime        time.Time `gorm:"column:datetime;index:idx_reservations_client_datetime"`
	Status          string    `gorm:"column:status"`
	CustomerInfo    string    `gorm:"column:customer_info;type:text"`
	ExternalEventID *string   `gorm:"column:external_event_id"`
	RemindersSent   string    `gorm:"column:reminders_sent;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (reservationModel) TableName() string { return "reservations" }

func toReservationModel(r *domain.Reservation) reservationModel {
	info, _ := json.Marshal(r.CustomerInfo)
	reminders, _ := json.Marshal(r.RemindersSent)
	return reservationModel{
		ID:              r.ID,
		ClientID:        r.ClientID,
		Datetime:        r.Datetime,
		Status:          string(r.Status),
		CustomerInfo:    string(info),
		ExternalEventID: r.ExternalEventID,
		RemindersSent:   string(reminders),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toDomainReservation(m reservationModel) *domain.Reservation {
	r := &domain.Reservation{
		ID:              m.ID,
		ClientID:        m.ClientID,
		Datetime:        m.Datetime,
		Status:          domain.ReservationStatus(m.Status),
		ExternalEventID: m.ExternalEventID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	_ = json.Unmarshal([]byte(m.CustomerInfo), &r.CustomerInfo)
	if m.RemindersSent != "" {
		_ = json.Unmarshal([]byte(m.RemindersSent), &r.RemindersSent)
	}
	return r
}

// CreateIfCapacity inserts the reservation only if its bucket still has
// spare capacity. The count and the insert run in one transaction so two
// concurrent bookings cannot both observe the last free place.
func (r *ReservationRepository) CreateIfCapacity(ctx context.Context, res *domain.Reservation, bucketStart, bucketEnd time.Time, capacity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		err := tx.Model(&reservationModel{}).
			Where("client_id = ? AND status <> ? AND datetime >= ? AND datetime < ?",
				res.ClientID, string(domain.ReservationCancelled), bucketStart, bucketEnd).
			Count(&cnt).Error
		if err != nil {
			return err
		}
		if cnt >= int64(capacity) {
			return ErrBucketFull
		}

		m := toReservationModel(res)
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		*res = *toDomainReservation(m)
		return nil
	})
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var m reservationModel
	tx := r.db.WithContext(ctx).First(&m, "id = ?", id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainReservation(m), nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *domain.Reservation) error {
	res.UpdatedAt = time.Now()
	m := toReservationModel(res)
	return r.db.WithContext(ctx).Save(&m).Error
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	tx := r.db.WithContext(ctx).Model(&reservationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ReservationRepository) SetExternalEventID(ctx context.Context, id string, eventID *string) error {
	return r.db.WithContext(ctx).Model(&reservationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"external_event_id": eventID, "updated_at": time.Now()}).Error
}

// CountInBucket counts non-cancelled reservations inside [start, end).
func (r *ReservationRepository) CountInBucket(ctx context.Context, clientID string, start, end time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&reservationModel{}).
		Where("client_id = ? AND status <> ? AND datetime >= ? AND datetime < ?",
			clientID, string(domain.ReservationCancelled), start, end).
		Count(&cnt).Error
	return cnt, err
}

// ReservationFilter narrows List results. Zero values mean "no filter".
type ReservationFilter struct {
	ClientID string
	From     time.Time
	To       time.Time
	Status   domain.ReservationStatus
}

func (r *ReservationRepository) List(ctx context.Context, f ReservationFilter) ([]domain.Reservation, error) {
	q := r.db.WithContext(ctx).Model(&reservationModel{})
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if !f.From.IsZero() {
		q = q.Where("datetime >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("datetime < ?", f.To)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var models []reservationModel
	if err := q.Order("datetime ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Reservation, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainReservation(m))
	}
	return out, nil
}
