package availability

import (
	"context"
	"log"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/gateway/googlecalendar"
	"slotbook/internal/repository"
)

type Service struct {
	hours        BusinessHoursStore
	reservations ReservationStore
	syncs        SyncProvider
	calendar     BusyIntervalSource
	loc          *time.Location
}

func NewService(
	hours BusinessHoursStore,
	reservations ReservationStore,
	syncs SyncProvider,
	calendar BusyIntervalSource,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		hours:        hours,
		reservations: reservations,
		syncs:        syncs,
		calendar:     calendar,
		loc:          loc,
	}
}

// ComputeDay answers availability for a single calendar day.
func (s *Service) ComputeDay(ctx context.Context, clientID string, date time.Time) ([]Slot, error) {
	return s.ComputeSlots(ctx, clientID, date, date)
}

// ComputeSlots merges business hours, local reservations, and external
// busy intervals into the ordered slot sequence for every day in
// [from, to] inclusive. It answers "what is open"; reservation-window
// policy is enforced by callers.
func (s *Service) ComputeSlots(ctx context.Context, clientID string, from, to time.Time) ([]Slot, error) {
	bh, err := s.hours.GetOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}

	interval := bh.SlotIntervalMinutes
	if interval <= 0 {
		interval = 60
	}

	slots := make([]Slot, 0)
	for day := s.startOfDay(from); !day.After(s.startOfDay(to)); day = day.AddDate(0, 0, 1) {
		daySlots, err := s.computeDay(ctx, clientID, bh, day, interval)
		if err != nil {
			return nil, err
		}
		slots = append(slots, daySlots...)
	}
	return slots, nil
}

func (s *Service) computeDay(ctx context.Context, clientID string, bh *domain.BusinessHours, day time.Time, interval int) ([]Slot, error) {
	cfg := bh.DayFor(day)
	if !cfg.IsOpen {
		return nil, nil
	}

	open, err := atTimeOfDay(day, cfg.Start)
	if err != nil {
		return nil, err
	}
	close, err := atTimeOfDay(day, cfg.End)
	if err != nil {
		return nil, err
	}
	if !open.Before(close) {
		return nil, nil
	}

	reservations, err := s.reservations.List(ctx, repository.ReservationFilter{
		ClientID: clientID,
		From:     day,
		To:       day.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	busy := s.externalBusy(ctx, clientID, open, close)

	step := time.Duration(interval) * time.Minute
	out := make([]Slot, 0, int(close.Sub(open)/step))
	for t := open; t.Before(close); t = t.Add(step) {
		bucketEnd := t.Add(step)

		booked := 0
		for _, r := range reservations {
			if r.Status == domain.ReservationCancelled {
				continue
			}
			rt := r.Datetime.In(s.loc)
			if !rt.Before(t) && rt.Before(bucketEnd) {
				booked++
			}
		}

		available := cfg.SlotCapacity - booked
		if available < 0 {
			available = 0
		}
		if overlapsAny(t, bucketEnd, busy) {
			available = 0
		}

		out = append(out, Slot{
			Date:        t.Format("2006-01-02"),
			StartTime:   t.Format("15:04"),
			EndTime:     bucketEnd.Format("15:04"),
			Capacity:    cfg.SlotCapacity,
			BookedCount: booked,
			Available:   available,
		})
	}
	return out, nil
}

// externalBusy fetches the tenant's external busy intervals for the day.
// A gateway failure never fails the computation: the external contribution
// degrades to empty and the error is logged.
func (s *Service) externalBusy(ctx context.Context, clientID string, start, end time.Time) []googlecalendar.Interval {
	if s.syncs == nil || s.calendar == nil {
		return nil
	}

	sync, err := s.syncs.ActiveSync(ctx, clientID)
	if err != nil {
		log.Printf("availability: sync lookup failed client_id=%s error=%v", clientID, err)
		return nil
	}
	if !sync.Active() {
		return nil
	}

	busy, err := s.calendar.ListBusyIntervals(ctx, sync.Credential, sync.CalendarID, start, end)
	if err != nil {
		log.Printf("availability: busy fetch failed client_id=%s calendar_id=%s error=%v", clientID, sync.CalendarID, err)
		return nil
	}
	return busy
}

func (s *Service) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func atTimeOfDay(day time.Time, hhmm string) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

func overlapsAny(start, end time.Time, busy []googlecalendar.Interval) bool {
	for _, b := range busy {
		if b.Start.Before(end) && start.Before(b.End) {
			return true
		}
	}
	return false
}
