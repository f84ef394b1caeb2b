package domain

import "time"

type TemplateType string

const (
	TemplateConfirmation TemplateType = "confirmation"
	TemplateReminder     TemplateType = "reminder"
	TemplateFollowup     TemplateType = "followup"
)

type TimingUnit string

const (
	UnitMinutes TimingUnit = "minutes"
	UnitHours   TimingUnit = "hours"
	UnitDays    TimingUnit = "days"
)

// Timing is the offset of a notification relative to the reservation
// instant. Reminders fire before it, followups after it. Ignored for
// confirmation templates, which always send immediately.
type Timing struct {
	Value int        `json:"value"`
	Unit  TimingUnit `json:"unit"`
}

// Offset converts the timing into a duration.
func (t Timing) Offset() (time.Duration, bool) {
	switch t.Unit {
	case UnitMinutes:
		return time.Duration(t.Value) * time.Minute, true
	case UnitHours:
		return time.Duration(t.Value) * time.Hour, true
	case UnitDays:
		return time.Duration(t.Value) * 24 * time.Hour, true
	}
	return 0, false
}

type EmailTemplate struct {
	ID        string       `json:"id"`
	ClientID  string       `json:"client_id"`
	Name      string       `json:"name"`
	Type      TemplateType `json:"type"`
	Subject   string       `json:"subject"`
	Body      string       `json:"body"`
	Timing    Timing       `json:"timing"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	// ScheduleSending is the transient claim a sweep or retry pass takes
	// on a record before attempting delivery, so overlapping passes cannot
	// send the same schedule twice.
	ScheduleSending ScheduleStatus = "sending"
	ScheduleSent    ScheduleStatus = "sent"
	ScheduleFailed  ScheduleStatus = "failed"
)

// EmailSchedule links a template to a reservation with an absolute fire
// time. Rows are never deleted; they double as the audit trail.
type EmailSchedule struct {
	ID            string         `json:"id"`
	TemplateID    string         `json:"template_id"`
	ReservationID string         `json:"reservation_id"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	Status        ScheduleStatus `json:"status"`
	Attempts      int            `json:"attempts"`
	LastError     string         `json:"last_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
)

// EmailLog is an append-only record of one send attempt.
type EmailLog struct {
	ID            string    `json:"id"`
	TemplateID    string    `json:"template_id"`
	ReservationID *string   `json:"reservation_id,omitempty"`
	Recipient     string    `json:"recipient"`
	Status        LogStatus `json:"status"`
	Error         string    `json:"error,omitempty"`
	SentAt        time.Time `json:"sent_at"`
}
