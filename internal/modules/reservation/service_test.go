package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/gateway/googlecalendar"
	"slotbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockReservationStore struct {
	mock.Mock
}

func (m *MockReservationStore) CreateIfCapacity(ctx context.Context, r *domain.Reservation, bucketStart, bucketEnd time.Time, capacity int) error {
	args := m.Called(ctx, r, bucketStart, bucketEnd, capacity)
	return args.Error(0)
}

func (m *MockReservationStore) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationStore) Save(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationStore) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockReservationStore) SetExternalEventID(ctx context.Context, id string, eventID *string) error {
	args := m.Called(ctx, id, eventID)
	return args.Error(0)
}

func (m *MockReservationStore) CountInBucket(ctx context.Context, clientID string, start, end time.Time) (int64, error) {
	args := m.Called(ctx, clientID, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationStore) List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

type MockBusinessHoursStore struct {
	mock.Mock
}

func (m *MockBusinessHoursStore) GetOrCreate(ctx context.Context, clientID string) (*domain.BusinessHours, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BusinessHours), args.Error(1)
}

type MockSyncManager struct {
	mock.Mock
}

func (m *MockSyncManager) ActiveSync(ctx context.Context, clientID string) (*domain.CalendarSync, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CalendarSync), args.Error(1)
}

func (m *MockSyncManager) MarkError(ctx context.Context, clientID string, cause string) error {
	args := m.Called(ctx, clientID, cause)
	return args.Error(0)
}

type MockCalendarGateway struct {
	mock.Mock
}

func (m *MockCalendarGateway) InsertEvent(ctx context.Context, cred domain.Credential, calendarID string, ev googlecalendar.Event) (string, error) {
	args := m.Called(ctx, cred, calendarID, ev)
	return args.String(0), args.Error(1)
}

func (m *MockCalendarGateway) UpdateEvent(ctx context.Context, cred domain.Credential, calendarID, eventID string, ev googlecalendar.Event) error {
	args := m.Called(ctx, cred, calendarID, eventID, ev)
	return args.Error(0)
}

func (m *MockCalendarGateway) DeleteEvent(ctx context.Context, cred domain.Credential, calendarID, eventID string) error {
	args := m.Called(ctx, cred, calendarID, eventID)
	return args.Error(0)
}

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) RegisterForReservation(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(clientID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func hoursFixture(clientID string) *domain.BusinessHours {
	bh := domain.DefaultBusinessHours(clientID)
	bh.Days[time.Monday] = domain.DayHours{IsOpen: true, Start: "09:00", End: "17:00", SlotCapacity: 1}
	return bh
}

var activeSync = &domain.CalendarSync{
	ClientID:    "acme",
	CalendarID:  "primary",
	SyncEnabled: true,
	SyncStatus:  domain.SyncActive,
	Credential:  domain.Credential{AccessToken: "tok"},
}

// 2025-03-10 is a Monday.
var mondayNoon = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func newTestService(store *MockReservationStore, hours *MockBusinessHoursStore, syncs *MockSyncManager, cal *MockCalendarGateway, reg *MockRegistrar, pub *recordingPublisher) *Service {
	var sm SyncManager
	if syncs != nil {
		sm = syncs
	}
	var cg CalendarGateway
	if cal != nil {
		cg = cal
	}
	var nr NotificationRegistrar
	if reg != nil {
		nr = reg
	}
	var ep EventPublisher
	if pub != nil {
		ep = pub
	}
	return NewService(store, hours, sm, cg, nr, ep, time.UTC, time.Second, false)
}

func TestCreate_Success(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)
	reg := new(MockRegistrar)
	pub := &recordingPublisher{}

	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)
	store.On("CreateIfCapacity", mock.Anything, mock.Anything,
		time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), 1).Return(nil)
	reg.On("RegisterForReservation", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, hours, nil, nil, reg, pub)
	result, err := svc.Create(context.Background(), CreateRequest{
		ClientID: "acme",
		Datetime: mondayNoon,
		CustomerInfo: domain.CustomerInfo{
			Name:  "Jane Doe",
			Email: "jane@example.com",
		},
	})

	require.NoError(t, err)
	require.NotNil(t, result.Reservation)
	assert.NoError(t, result.MirrorErr)
	assert.Equal(t, domain.ReservationPending, result.Reservation.Status)
	assert.NotEmpty(t, result.Reservation.ID)
	assert.Equal(t, []string{EventReservationCreated}, pub.events)
	reg.AssertCalled(t, "RegisterForReservation", mock.Anything, mock.Anything)
}

func TestCreate_BucketFullIsSlotConflict(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)

	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)
	store.On("CreateIfCapacity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 1).
		Return(repository.ErrBucketFull)

	svc := newTestService(store, hours, nil, nil, nil, nil)
	_, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     mondayNoon,
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
	})

	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreate_ClosedDayIsSlotConflict(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)

	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)

	svc := newTestService(store, hours, nil, nil, nil, nil)
	sunday := time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     sunday,
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
	})

	assert.ErrorIs(t, err, ErrSlotConflict)
	store.AssertNotCalled(t, "CreateIfCapacity")
}

func TestCreate_OutsideOpenHoursIsSlotConflict(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)

	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)

	svc := newTestService(store, hours, nil, nil, nil, nil)
	_, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
	})

	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreate_InvalidCustomerInfo(t *testing.T) {
	svc := newTestService(new(MockReservationStore), new(MockBusinessHoursStore), nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     mondayNoon,
		CustomerInfo: domain.CustomerInfo{Name: "", Email: "jane@example.com"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     mondayNoon,
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "not-an-email"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreate_MirrorFailureDoesNotFailBooking(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)
	syncs := new(MockSyncManager)
	cal := new(MockCalendarGateway)

	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)
	store.On("CreateIfCapacity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 1).Return(nil)
	syncs.On("ActiveSync", mock.Anything, "acme").Return(activeSync, nil)
	cal.On("InsertEvent", mock.Anything, activeSync.Credential, "primary", mock.Anything).
		Return("", googlecalendar.ErrUnavailable)
	syncs.On("MarkError", mock.Anything, "acme", mock.Anything).Return(nil)

	svc := newTestService(store, hours, syncs, cal, nil, nil)
	result, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     mondayNoon,
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
	})

	require.NoError(t, err)
	assert.ErrorIs(t, result.MirrorErr, googlecalendar.ErrUnavailable)
	assert.Nil(t, result.Reservation.ExternalEventID)
	syncs.AssertCalled(t, "MarkError", mock.Anything, "acme", mock.Anything)
}

func TestCreate_MirrorSuccessStoresEventID(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)
	syncs := new(MockSyncManager)
	cal := new(MockCalendarGateway)

	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)
	store.On("CreateIfCapacity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 1).Return(nil)
	syncs.On("ActiveSync", mock.Anything, "acme").Return(activeSync, nil)
	cal.On("InsertEvent", mock.Anything, activeSync.Credential, "primary", mock.Anything).Return("evt-1", nil)
	store.On("SetExternalEventID", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, hours, syncs, cal, nil, nil)
	result, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     mondayNoon,
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
	})

	require.NoError(t, err)
	require.NoError(t, result.MirrorErr)
	require.NotNil(t, result.Reservation.ExternalEventID)
	assert.Equal(t, "evt-1", *result.Reservation.ExternalEventID)
}

func TestCancel_Idempotent(t *testing.T) {
	store := new(MockReservationStore)

	cancelled := &domain.Reservation{ID: "r1", ClientID: "acme", Status: domain.ReservationCancelled}
	store.On("GetByID", mock.Anything, "r1").Return(cancelled, nil)

	svc := newTestService(store, new(MockBusinessHoursStore), nil, nil, nil, nil)
	r, err := svc.Cancel(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, r.Status)
	store.AssertNotCalled(t, "UpdateStatus")
}

func TestCancel_DeletesMirroredEvent(t *testing.T) {
	store := new(MockReservationStore)
	syncs := new(MockSyncManager)
	cal := new(MockCalendarGateway)
	pub := &recordingPublisher{}

	eventID := "evt-9"
	r := &domain.Reservation{
		ID:              "r1",
		ClientID:        "acme",
		Status:          domain.ReservationConfirmed,
		ExternalEventID: &eventID,
	}
	store.On("GetByID", mock.Anything, "r1").Return(r, nil)
	store.On("UpdateStatus", mock.Anything, "r1", domain.ReservationCancelled).Return(nil)
	syncs.On("ActiveSync", mock.Anything, "acme").Return(activeSync, nil)
	cal.On("DeleteEvent", mock.Anything, activeSync.Credential, "primary", "evt-9").Return(nil)

	svc := newTestService(store, new(MockBusinessHoursStore), syncs, cal, nil, pub)
	got, err := svc.Cancel(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, got.Status)
	cal.AssertCalled(t, "DeleteEvent", mock.Anything, activeSync.Credential, "primary", "evt-9")
	assert.Equal(t, []string{EventReservationCancelled}, pub.events)
}

func TestCancel_NotFound(t *testing.T) {
	store := new(MockReservationStore)
	store.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	svc := newTestService(store, new(MockBusinessHoursStore), nil, nil, nil, nil)
	_, err := svc.Cancel(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_CancelledIsRejected(t *testing.T) {
	store := new(MockReservationStore)
	store.On("GetByID", mock.Anything, "r1").
		Return(&domain.Reservation{ID: "r1", Status: domain.ReservationCancelled}, nil)

	svc := newTestService(store, new(MockBusinessHoursStore), nil, nil, nil, nil)
	status := "confirmed"
	_, err := svc.Update(context.Background(), "r1", UpdateRequest{Status: &status})

	assert.ErrorIs(t, err, ErrCancelled)
}

func TestUpdate_RebucketChecksTargetCapacity(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)

	r := &domain.Reservation{
		ID:       "r1",
		ClientID: "acme",
		Datetime: mondayNoon,
		Status:   domain.ReservationConfirmed,
	}
	store.On("GetByID", mock.Anything, "r1").Return(r, nil)
	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)
	store.On("CountInBucket", mock.Anything, "acme",
		time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)).Return(int64(1), nil)

	svc := newTestService(store, hours, nil, nil, nil, nil)
	target := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	_, err := svc.Update(context.Background(), "r1", UpdateRequest{Datetime: &target})

	assert.ErrorIs(t, err, ErrSlotConflict)
	store.AssertNotCalled(t, "Save")
}

func TestUpdate_MoveWithinSameBucketSucceeds(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)

	r := &domain.Reservation{
		ID:       "r1",
		ClientID: "acme",
		Datetime: mondayNoon,
		Status:   domain.ReservationConfirmed,
	}
	store.On("GetByID", mock.Anything, "r1").Return(r, nil)
	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	// 14:00 -> 14:30 stays inside the 14:00-15:00 bucket; with capacity 1
	// the only occupant is the reservation being moved.
	svc := newTestService(store, hours, nil, nil, nil, nil)
	target := mondayNoon.Add(30 * time.Minute)
	result, err := svc.Update(context.Background(), "r1", UpdateRequest{Datetime: &target})

	require.NoError(t, err)
	assert.True(t, target.Equal(result.Reservation.Datetime))
	store.AssertNotCalled(t, "CountInBucket")
	store.AssertCalled(t, "Save", mock.Anything, mock.Anything)
}

// memReservationStore is a mutex-guarded store so concurrent Create calls
// exercise the real count-then-insert sequence.
type memReservationStore struct {
	mu   sync.Mutex
	rows []*domain.Reservation
}

func (m *memReservationStore) CreateIfCapacity(ctx context.Context, r *domain.Reservation, bucketStart, bucketEnd time.Time, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cnt int
	for _, e := range m.rows {
		if e.Status != domain.ReservationCancelled && !e.Datetime.Before(bucketStart) && e.Datetime.Before(bucketEnd) {
			cnt++
		}
	}
	if cnt >= capacity {
		return repository.ErrBucketFull
	}
	m.rows = append(m.rows, r)
	return nil
}

func (m *memReservationStore) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memReservationStore) Save(ctx context.Context, r *domain.Reservation) error { return nil }

func (m *memReservationStore) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	return nil
}

func (m *memReservationStore) SetExternalEventID(ctx context.Context, id string, eventID *string) error {
	return nil
}

func (m *memReservationStore) CountInBucket(ctx context.Context, clientID string, start, end time.Time) (int64, error) {
	return 0, nil
}

func (m *memReservationStore) List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error) {
	return nil, nil
}

func TestCreate_ConcurrentBookingsRespectCapacity(t *testing.T) {
	store := &memReservationStore{}
	hours := new(MockBusinessHoursStore)

	bh := hoursFixture("acme")
	bh.Days[time.Monday] = domain.DayHours{IsOpen: true, Start: "09:00", End: "17:00", SlotCapacity: 2}
	hours.On("GetOrCreate", mock.Anything, "acme").Return(bh, nil)

	svc := NewService(store, hours, nil, nil, nil, nil, time.UTC, time.Second, false)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateRequest{
				ClientID:     "acme",
				Datetime:     mondayNoon.Add(time.Duration(i) * time.Minute),
				CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
			})
		}(i)
	}
	wg.Wait()

	var booked, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			booked++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, booked)
	assert.Equal(t, callers-2, conflicts)
	assert.Len(t, store.rows, 2)
}

func TestWithinWindow(t *testing.T) {
	hours := new(MockBusinessHoursStore)
	bh := hoursFixture("acme")
	bh.Window = domain.ReservationWindow{MinDays: 1, MaxDays: 30}
	hours.On("GetOrCreate", mock.Anything, "acme").Return(bh, nil)

	svc := newTestService(new(MockReservationStore), hours, nil, nil, nil, nil)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	cases := []struct {
		name string
		dt   time.Time
		want bool
	}{
		{"same day is too soon", now.Add(2 * time.Hour), false},
		{"tomorrow is fine", now.AddDate(0, 0, 1).Add(time.Hour), true},
		{"thirty days out is fine", now.AddDate(0, 0, 30), true},
		{"past the horizon", now.AddDate(0, 0, 32), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := svc.WithinWindow(context.Background(), "acme", tc.dt)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestCreate_SyncLookupFailureSkipsMirror(t *testing.T) {
	store := new(MockReservationStore)
	hours := new(MockBusinessHoursStore)
	syncs := new(MockSyncManager)
	cal := new(MockCalendarGateway)

	hours.On("GetOrCreate", mock.Anything, "acme").Return(hoursFixture("acme"), nil)
	store.On("CreateIfCapacity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 1).Return(nil)
	syncs.On("ActiveSync", mock.Anything, "acme").Return(nil, errors.New("db down"))

	svc := newTestService(store, hours, syncs, cal, nil, nil)
	result, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     "acme",
		Datetime:     mondayNoon,
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
	})

	require.NoError(t, err)
	assert.NoError(t, result.MirrorErr)
	cal.AssertNotCalled(t, "InsertEvent")
}
