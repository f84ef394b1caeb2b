package calendarsync

import "slotbook/internal/domain"

type CompleteSetupRequest struct {
	Code string `json:"code" binding:"required"`
}

type BusinessHoursRequest struct {
	Days                [7]domain.DayHours       `json:"days" binding:"required"`
	SlotIntervalMinutes int                      `json:"slot_interval_minutes" binding:"required"`
	Window              domain.ReservationWindow `json:"reservation_window"`
}
