package reservation

import (
	"time"

	"slotbook/internal/domain"
)

type CreateRequest struct {
	ClientID     string              `json:"client_id"`
	Datetime     time.Time           `json:"datetime" binding:"required"`
	CustomerInfo domain.CustomerInfo `json:"customer_info" binding:"required"`
}

// UpdateRequest patches a reservation. Nil fields are left untouched.
type UpdateRequest struct {
	Datetime     *time.Time           `json:"datetime"`
	Status       *string              `json:"status"`
	CustomerInfo *domain.CustomerInfo `json:"customer_info"`
}

// CreateResult separates the committed local booking from the outcome of
// the best-effort external mirror. MirrorErr set means the reservation is
// valid locally but drifted from the external calendar.
type CreateResult struct {
	Reservation *domain.Reservation
	MirrorErr   error
}
