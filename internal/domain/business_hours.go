package domain

import (
	"fmt"
	"time"
)

// DayHours is the opening configuration for a single weekday.
// Start and End are local times of day in "15:04" form.
type DayHours struct {
	IsOpen       bool   `json:"is_open"`
	Start        string `json:"start"`
	End          string `json:"end"`
	SlotCapacity int    `json:"slot_capacity"`
}

// ReservationWindow bounds how far ahead a slot may be booked, in days.
type ReservationWindow struct {
	MinDays int `json:"min_days"`
	MaxDays int `json:"max_days"`
}

// BusinessHours is the per-tenant weekly schedule. Days is indexed by
// time.Weekday (Sunday = 0), one entry per weekday.
type BusinessHours struct {
	ClientID            string            `json:"client_id"`
	Days                [7]DayHours       `json:"days"`
	SlotIntervalMinutes int               `json:"slot_interval_minutes"`
	Window              ReservationWindow `json:"reservation_window"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// DayFor returns the configuration entry for the weekday of t.
func (bh *BusinessHours) DayFor(t time.Time) DayHours {
	return bh.Days[int(t.Weekday())]
}

// Validate checks the invariants for every open day: start before end
// and at least one slot of capacity.
func (bh *BusinessHours) Validate() error {
	if bh.SlotIntervalMinutes <= 0 || bh.SlotIntervalMinutes > 60 {
		return fmt.Errorf("slot interval must be within (0, 60] minutes, got %d", bh.SlotIntervalMinutes)
	}
	if 60%bh.SlotIntervalMinutes != 0 {
		return fmt.Errorf("slot interval must divide an hour evenly, got %d", bh.SlotIntervalMinutes)
	}
	for wd, day := range bh.Days {
		if !day.IsOpen {
			continue
		}
		start, err := time.Parse("15:04", day.Start)
		if err != nil {
			return fmt.Errorf("%s: bad start time %q", time.Weekday(wd), day.Start)
		}
		end, err := time.Parse("15:04", day.End)
		if err != nil {
			return fmt.Errorf("%s: bad end time %q", time.Weekday(wd), day.End)
		}
		if !start.Before(end) {
			return fmt.Errorf("%s: start %s must be before end %s", time.Weekday(wd), day.Start, day.End)
		}
		if day.SlotCapacity < 1 {
			return fmt.Errorf("%s: open day needs capacity >= 1, got %d", time.Weekday(wd), day.SlotCapacity)
		}
	}
	return nil
}

// DefaultBusinessHours is the configuration a tenant gets on first access:
// weekdays 09:00-17:00 with one slot per hour, weekends closed.
func DefaultBusinessHours(clientID string) *BusinessHours {
	bh := &BusinessHours{
		ClientID:            clientID,
		SlotIntervalMinutes: 60,
		Window:              ReservationWindow{MinDays: 1, MaxDays: 30},
	}
	for wd := range bh.Days {
		switch time.Weekday(wd) {
		case time.Saturday, time.Sunday:
			bh.Days[wd] = DayHours{IsOpen: false, Start: "10:00", End: "15:00", SlotCapacity: 1}
		default:
			bh.Days[wd] = DayHours{IsOpen: true, Start: "09:00", End: "17:00", SlotCapacity: 1}
		}
	}
	return bh
}
