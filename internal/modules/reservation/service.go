package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/gateway/googlecalendar"
	"slotbook/internal/pkg/validator"
	"slotbook/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationCancelled = "reservation.cancelled"
)

type Service struct {
	reservations  ReservationStore
	hours         BusinessHoursStore
	syncs         SyncManager
	calendar      CalendarGateway
	notifications NotificationRegistrar
	events        EventPublisher

	locks         *bucketLocks
	loc           *time.Location
	mirrorTimeout time.Duration

	// confirmOnCreate books new reservations as confirmed instead of
	// pending.
	confirmOnCreate bool

	now func() time.Time
}

func NewService(
	reservations ReservationStore,
	hours BusinessHoursStore,
	syncs SyncManager,
	calendar CalendarGateway,
	notifications NotificationRegistrar,
	events EventPublisher,
	loc *time.Location,
	mirrorTimeout time.Duration,
	confirmOnCreate bool,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if mirrorTimeout <= 0 {
		mirrorTimeout = 10 * time.Second
	}
	return &Service{
		reservations:    reservations,
		hours:           hours,
		syncs:           syncs,
		calendar:        calendar,
		notifications:   notifications,
		events:          events,
		locks:           newBucketLocks(),
		loc:             loc,
		mirrorTimeout:   mirrorTimeout,
		confirmOnCreate: confirmOnCreate,
		now:             time.Now,
	}
}

// Create books a slot. The local write is the commit point: mirror and
// notification failures never roll it back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.Datetime.IsZero() {
		return nil, fmt.Errorf("%w: datetime is required", ErrValidation)
	}
	if err := validateCustomerInfo(req.CustomerInfo); err != nil {
		return nil, err
	}

	clientID := req.ClientID
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrValidation)
	}

	bh, err := s.hours.GetOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}

	dt := req.Datetime.In(s.loc)
	bucketStart, bucketEnd, capacity, err := s.resolveBucket(bh, dt)
	if err != nil {
		return nil, err
	}

	status := domain.ReservationPending
	if s.confirmOnCreate {
		status = domain.ReservationConfirmed
	}
	r := &domain.Reservation{
		ID:           uuid.NewString(),
		ClientID:     clientID,
		Datetime:     dt,
		Status:       status,
		CustomerInfo: req.CustomerInfo,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}

	// Capacity check and insert are one atomic unit per bucket. The
	// mutex serializes in-process racers; the transactional re-count in
	// the store covers everything else.
	unlock := s.locks.acquire(clientID, bucketStart)
	err = s.reservations.CreateIfCapacity(ctx, r, bucketStart, bucketEnd, capacity)
	unlock()
	if err != nil {
		if errors.Is(err, repository.ErrBucketFull) {
			return nil, ErrSlotConflict
		}
		return nil, err
	}

	result := &CreateResult{Reservation: r}
	result.MirrorErr = s.mirrorInsert(ctx, r, bucketEnd.Sub(bucketStart))

	if s.notifications != nil {
		if err := s.notifications.RegisterForReservation(ctx, r); err != nil {
			log.Printf("reservation: notification registration failed id=%s error=%v", r.ID, err)
		}
	}
	s.publish(clientID, EventReservationCreated, r)

	return result, nil
}

// Cancel marks the reservation cancelled and best-effort deletes its
// mirrored event. The cancelled local state is authoritative even when the
// mirror delete fails.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Reservation, error) {
	r, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == domain.ReservationCancelled {
		return r, nil
	}

	if err := s.reservations.UpdateStatus(ctx, id, domain.ReservationCancelled); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Status = domain.ReservationCancelled

	if r.ExternalEventID != nil {
		if mirrorErr := s.mirrorDelete(ctx, r); mirrorErr != nil {
			log.Printf("reservation: mirror delete failed id=%s event_id=%s error=%v", r.ID, *r.ExternalEventID, mirrorErr)
		}
	}
	s.publish(r.ClientID, EventReservationCancelled, r)

	return r, nil
}

// Update patches a non-cancelled reservation and re-mirrors best-effort.
func (s *Service) Update(ctx context.Context, id string, patch UpdateRequest) (*CreateResult, error) {
	r, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == domain.ReservationCancelled {
		return nil, ErrCancelled
	}

	if patch.Status != nil {
		next := domain.ReservationStatus(*patch.Status)
		switch next {
		case domain.ReservationPending, domain.ReservationConfirmed:
			r.Status = next
		default:
			return nil, fmt.Errorf("%w: status must be pending or confirmed", ErrValidation)
		}
	}
	if patch.CustomerInfo != nil {
		if err := validateCustomerInfo(*patch.CustomerInfo); err != nil {
			return nil, err
		}
		r.CustomerInfo = *patch.CustomerInfo
	}

	if patch.Datetime != nil && !patch.Datetime.In(s.loc).Equal(r.Datetime) {
		if err := s.rebucket(ctx, r, patch.Datetime.In(s.loc)); err != nil {
			return nil, err
		}
	} else {
		if err := s.reservations.Save(ctx, r); err != nil {
			return nil, err
		}
	}

	result := &CreateResult{Reservation: r}
	result.MirrorErr = s.mirrorUpdate(ctx, r)
	s.publish(r.ClientID, EventReservationUpdated, r)

	return result, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return s.getExisting(ctx, id)
}

func (s *Service) List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error) {
	return s.reservations.List(ctx, f)
}

// WithinWindow checks the tenant's booking-window policy for a candidate
// datetime. The availability engine itself stays policy-free.
func (s *Service) WithinWindow(ctx context.Context, clientID string, dt time.Time) (bool, error) {
	bh, err := s.hours.GetOrCreate(ctx, clientID)
	if err != nil {
		return false, err
	}
	now := s.now().In(s.loc)
	earliest := now.AddDate(0, 0, bh.Window.MinDays)
	latest := now.AddDate(0, 0, bh.Window.MaxDays+1)
	dt = dt.In(s.loc)
	return !dt.Before(earliest) && dt.Before(latest), nil
}

// --- internals ---

func (s *Service) getExisting(ctx context.Context, id string) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// resolveBucket validates the instant against business hours and returns
// its bucket bounds and capacity.
func (s *Service) resolveBucket(bh *domain.BusinessHours, dt time.Time) (start, end time.Time, capacity int, err error) {
	cfg := bh.DayFor(dt)
	if !cfg.IsOpen {
		return time.Time{}, time.Time{}, 0, ErrSlotConflict
	}

	interval := bh.SlotIntervalMinutes
	if interval <= 0 {
		interval = 60
	}
	start = domain.BucketStart(dt, interval)
	end = start.Add(time.Duration(interval) * time.Minute)

	open, perr := time.Parse("15:04", cfg.Start)
	if perr != nil {
		return time.Time{}, time.Time{}, 0, perr
	}
	close, perr := time.Parse("15:04", cfg.End)
	if perr != nil {
		return time.Time{}, time.Time{}, 0, perr
	}
	dayOpen := time.Date(dt.Year(), dt.Month(), dt.Day(), open.Hour(), open.Minute(), 0, 0, s.loc)
	dayClose := time.Date(dt.Year(), dt.Month(), dt.Day(), close.Hour(), close.Minute(), 0, 0, s.loc)
	if start.Before(dayOpen) || end.After(dayClose) {
		return time.Time{}, time.Time{}, 0, ErrSlotConflict
	}

	return start, end, cfg.SlotCapacity, nil
}

// rebucket moves a reservation to a new datetime, re-checking capacity in
// the target bucket under the same lock discipline as Create.
func (s *Service) rebucket(ctx context.Context, r *domain.Reservation, dt time.Time) error {
	bh, err := s.hours.GetOrCreate(ctx, r.ClientID)
	if err != nil {
		return err
	}
	bucketStart, bucketEnd, capacity, err := s.resolveBucket(bh, dt)
	if err != nil {
		return err
	}

	interval := bh.SlotIntervalMinutes
	if interval <= 0 {
		interval = 60
	}
	if domain.BucketStart(r.Datetime.In(s.loc), interval).Equal(bucketStart) {
		// Moving within the current bucket leaves its occupancy
		// unchanged; the only counted occupant would be the reservation
		// itself.
		r.Datetime = dt
		return s.reservations.Save(ctx, r)
	}

	unlock := s.locks.acquire(r.ClientID, bucketStart)
	defer unlock()

	cnt, err := s.reservations.CountInBucket(ctx, r.ClientID, bucketStart, bucketEnd)
	if err != nil {
		return err
	}
	if cnt >= int64(capacity) {
		return ErrSlotConflict
	}

	r.Datetime = dt
	return s.reservations.Save(ctx, r)
}

func (s *Service) mirrorInsert(ctx context.Context, r *domain.Reservation, duration time.Duration) error {
	sync, err := s.activeSync(ctx, r.ClientID)
	if err != nil || sync == nil {
		return err
	}

	mctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	eventID, err := s.calendar.InsertEvent(mctx, sync.Credential, sync.CalendarID, mirrorEvent(r, duration))
	if err != nil {
		s.recordDrift(ctx, r.ClientID, "event insert", err)
		return err
	}

	if err := s.reservations.SetExternalEventID(ctx, r.ID, &eventID); err != nil {
		return err
	}
	r.ExternalEventID = &eventID
	return nil
}

func (s *Service) mirrorUpdate(ctx context.Context, r *domain.Reservation) error {
	if r.ExternalEventID == nil {
		return nil
	}
	sync, err := s.activeSync(ctx, r.ClientID)
	if err != nil || sync == nil {
		return err
	}

	mctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	if err := s.calendar.UpdateEvent(mctx, sync.Credential, sync.CalendarID, *r.ExternalEventID, mirrorEvent(r, time.Hour)); err != nil {
		s.recordDrift(ctx, r.ClientID, "event update", err)
		return err
	}
	return nil
}

func (s *Service) mirrorDelete(ctx context.Context, r *domain.Reservation) error {
	sync, err := s.activeSync(ctx, r.ClientID)
	if err != nil || sync == nil {
		return err
	}

	mctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	if err := s.calendar.DeleteEvent(mctx, sync.Credential, sync.CalendarID, *r.ExternalEventID); err != nil {
		s.recordDrift(ctx, r.ClientID, "event delete", err)
		return err
	}
	return nil
}

func (s *Service) activeSync(ctx context.Context, clientID string) (*domain.CalendarSync, error) {
	if s.syncs == nil || s.calendar == nil {
		return nil, nil
	}
	sync, err := s.syncs.ActiveSync(ctx, clientID)
	if err != nil {
		log.Printf("reservation: sync lookup failed client_id=%s error=%v", clientID, err)
		return nil, nil
	}
	if !sync.Active() {
		return nil, nil
	}
	return sync, nil
}

func (s *Service) recordDrift(ctx context.Context, clientID, op string, cause error) {
	log.Printf("reservation: mirror %s failed client_id=%s error=%v", op, clientID, cause)
	if err := s.syncs.MarkError(ctx, clientID, fmt.Sprintf("%s: %v", op, cause)); err != nil {
		log.Printf("reservation: recording sync error failed client_id=%s error=%v", clientID, err)
	}
}

func (s *Service) publish(clientID, event string, r *domain.Reservation) {
	if s.events != nil {
		s.events.Publish(clientID, event, r)
	}
}

func mirrorEvent(r *domain.Reservation, duration time.Duration) googlecalendar.Event {
	info := r.CustomerInfo
	lines := []string{
		"Email: " + info.Email,
	}
	if info.Company != "" {
		lines = append(lines, "Company: "+info.Company)
	}
	if info.Phone != "" {
		lines = append(lines, "Phone: "+info.Phone)
	}
	if info.Message != "" {
		lines = append(lines, "Notes: "+info.Message)
	}
	return googlecalendar.Event{
		Summary:     "Reservation: " + info.Name,
		Description: strings.Join(lines, "\n"),
		Start:       r.Datetime,
		End:         r.Datetime.Add(duration),
	}
}

func validateCustomerInfo(info domain.CustomerInfo) error {
	if strings.TrimSpace(info.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if !validator.ValidEmail(info.Email) {
		return fmt.Errorf("%w: customer email %q is not valid", ErrValidation, info.Email)
	}
	return nil
}
