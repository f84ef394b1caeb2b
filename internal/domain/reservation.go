package domain

import (
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// CustomerInfo is the contact block captured by the booking widget.
// Name and Email are required; the rest is optional.
type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Message string `json:"message,omitempty"`
}

// ReminderRecord marks a notification kind already delivered for a reservation.
type ReminderRecord struct {
	Kind   string    `json:"kind"`
	SentAt time.Time `json:"sent_at"`
}

type Reservation struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id"`
	Datetime        time.Time         `json:"datetime"`
	Status          ReservationStatus `json:"status"`
	CustomerInfo    CustomerInfo      `json:"customer_info"`
	ExternalEventID *string           `json:"external_event_id,omitempty"`
	RemindersSent   []ReminderRecord  `json:"reminders_sent,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// BucketStart truncates the reservation instant to the start of its
// availability bucket. Buckets never cross an hour boundary, so minutes
// are floored to the bucket width within the hour.
func BucketStart(t time.Time, intervalMinutes int) time.Time {
	if intervalMinutes <= 0 || intervalMinutes >= 60 {
		return t.Truncate(time.Hour)
	}
	minute := t.Minute() - t.Minute()%intervalMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}
