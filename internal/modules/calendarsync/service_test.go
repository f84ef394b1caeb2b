package calendarsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/gateway/googlecalendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSyncStore struct {
	mock.Mock
}

func (m *MockSyncStore) Get(ctx context.Context, clientID string) (*domain.CalendarSync, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CalendarSync), args.Error(1)
}

func (m *MockSyncStore) Upsert(ctx context.Context, s *domain.CalendarSync) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSyncStore) SaveCredential(ctx context.Context, clientID string, cred domain.Credential) error {
	args := m.Called(ctx, clientID, cred)
	return args.Error(0)
}

func (m *MockSyncStore) MarkError(ctx context.Context, clientID string, cause string) error {
	args := m.Called(ctx, clientID, cause)
	return args.Error(0)
}

func (m *MockSyncStore) Disconnect(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

type MockHoursStore struct {
	mock.Mock
}

func (m *MockHoursStore) GetOrCreate(ctx context.Context, clientID string) (*domain.BusinessHours, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BusinessHours), args.Error(1)
}

func (m *MockHoursStore) Save(ctx context.Context, h *domain.BusinessHours) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) AuthURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockGateway) ExchangeCode(ctx context.Context, code string) (domain.Credential, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.Credential), args.Error(1)
}

func (m *MockGateway) RefreshCredential(ctx context.Context, refreshToken string) (domain.Credential, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(domain.Credential), args.Error(1)
}

func (m *MockGateway) PrimaryCalendar(ctx context.Context, cred domain.Credential) (string, error) {
	args := m.Called(ctx, cred)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) ListBusyIntervals(ctx context.Context, cred domain.Credential, calendarID string, start, end time.Time) ([]googlecalendar.Interval, error) {
	args := m.Called(ctx, cred, calendarID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]googlecalendar.Interval), args.Error(1)
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(syncs *MockSyncStore, hours *MockHoursStore, gw *MockGateway) *Service {
	svc := NewService(syncs, hours, gw)
	svc.now = func() time.Time { return testNow }
	return svc
}

func activeRecord(expiry time.Time) *domain.CalendarSync {
	return &domain.CalendarSync{
		ClientID:    "acme",
		CalendarID:  "primary",
		SyncEnabled: true,
		SyncStatus:  domain.SyncActive,
		Credential: domain.Credential{
			AccessToken:  "old-token",
			RefreshToken: "refresh-token",
			TokenExpiry:  expiry,
		},
	}
}

func TestActiveSync_NeverConnected(t *testing.T) {
	syncs := new(MockSyncStore)
	gw := new(MockGateway)
	syncs.On("Get", mock.Anything, "acme").Return(nil, nil)

	svc := newTestService(syncs, new(MockHoursStore), gw)
	sync, err := svc.ActiveSync(context.Background(), "acme")

	require.NoError(t, err)
	assert.Nil(t, sync)
	gw.AssertNotCalled(t, "RefreshCredential")
}

func TestActiveSync_DisconnectedIsNil(t *testing.T) {
	syncs := new(MockSyncStore)
	record := activeRecord(testNow.Add(time.Hour))
	record.SyncStatus = domain.SyncDisconnected
	record.SyncEnabled = false
	syncs.On("Get", mock.Anything, "acme").Return(record, nil)

	svc := newTestService(syncs, new(MockHoursStore), new(MockGateway))
	sync, err := svc.ActiveSync(context.Background(), "acme")

	require.NoError(t, err)
	assert.Nil(t, sync)
}

func TestActiveSync_FreshTokenPassesThrough(t *testing.T) {
	syncs := new(MockSyncStore)
	gw := new(MockGateway)
	syncs.On("Get", mock.Anything, "acme").Return(activeRecord(testNow.Add(time.Hour)), nil)

	svc := newTestService(syncs, new(MockHoursStore), gw)
	sync, err := svc.ActiveSync(context.Background(), "acme")

	require.NoError(t, err)
	require.NotNil(t, sync)
	assert.Equal(t, "old-token", sync.Credential.AccessToken)
	gw.AssertNotCalled(t, "RefreshCredential")
}

func TestActiveSync_ExpiredTokenIsRefreshedAndPersisted(t *testing.T) {
	syncs := new(MockSyncStore)
	gw := new(MockGateway)

	syncs.On("Get", mock.Anything, "acme").Return(activeRecord(testNow.Add(-time.Minute)), nil)
	refreshed := domain.Credential{
		AccessToken:  "new-token",
		RefreshToken: "refresh-token",
		TokenExpiry:  testNow.Add(time.Hour),
	}
	gw.On("RefreshCredential", mock.Anything, "refresh-token").Return(refreshed, nil)
	syncs.On("SaveCredential", mock.Anything, "acme", refreshed).Return(nil)

	svc := newTestService(syncs, new(MockHoursStore), gw)
	sync, err := svc.ActiveSync(context.Background(), "acme")

	require.NoError(t, err)
	require.NotNil(t, sync)
	assert.Equal(t, "new-token", sync.Credential.AccessToken)
	syncs.AssertCalled(t, "SaveCredential", mock.Anything, "acme", refreshed)
}

func TestActiveSync_RefreshFailureMarksError(t *testing.T) {
	syncs := new(MockSyncStore)
	gw := new(MockGateway)

	syncs.On("Get", mock.Anything, "acme").Return(activeRecord(testNow.Add(-time.Minute)), nil)
	gw.On("RefreshCredential", mock.Anything, "refresh-token").
		Return(domain.Credential{}, googlecalendar.ErrUnavailable)
	syncs.On("MarkError", mock.Anything, "acme", mock.Anything).Return(nil)

	svc := newTestService(syncs, new(MockHoursStore), gw)
	_, err := svc.ActiveSync(context.Background(), "acme")

	assert.ErrorIs(t, err, googlecalendar.ErrUnavailable)
	syncs.AssertCalled(t, "MarkError", mock.Anything, "acme", mock.Anything)
}

func TestCompleteSetup_ActivatesSync(t *testing.T) {
	syncs := new(MockSyncStore)
	gw := new(MockGateway)

	cred := domain.Credential{AccessToken: "tok", RefreshToken: "ref", TokenExpiry: testNow.Add(time.Hour)}
	gw.On("ExchangeCode", mock.Anything, "auth-code").Return(cred, nil)
	gw.On("PrimaryCalendar", mock.Anything, cred).Return("primary-cal", nil)

	var stored *domain.CalendarSync
	syncs.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.CalendarSync)
	}).Return(nil)

	svc := newTestService(syncs, new(MockHoursStore), gw)
	sync, err := svc.CompleteSetup(context.Background(), "acme", "auth-code")

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "primary-cal", stored.CalendarID)
	assert.True(t, stored.SyncEnabled)
	assert.Equal(t, domain.SyncActive, stored.SyncStatus)
	assert.True(t, sync.Active())
}

func TestCompleteSetup_EmptyCode(t *testing.T) {
	svc := newTestService(new(MockSyncStore), new(MockHoursStore), new(MockGateway))
	_, err := svc.CompleteSetup(context.Background(), "acme", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStatus_NeverConnectedIsSyntheticDisconnected(t *testing.T) {
	syncs := new(MockSyncStore)
	syncs.On("Get", mock.Anything, "acme").Return(nil, nil)

	svc := newTestService(syncs, new(MockHoursStore), new(MockGateway))
	status, err := svc.Status(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, domain.SyncDisconnected, status.SyncStatus)
	assert.False(t, status.Active())
}

func TestStatus_StripsCredential(t *testing.T) {
	syncs := new(MockSyncStore)
	syncs.On("Get", mock.Anything, "acme").Return(activeRecord(testNow.Add(time.Hour)), nil)

	svc := newTestService(syncs, new(MockHoursStore), new(MockGateway))
	status, err := svc.Status(context.Background(), "acme")

	require.NoError(t, err)
	assert.Empty(t, status.Credential.AccessToken)
	assert.Empty(t, status.Credential.RefreshToken)
}

func TestDisconnect_NotConnected(t *testing.T) {
	syncs := new(MockSyncStore)
	syncs.On("Get", mock.Anything, "acme").Return(nil, nil)

	svc := newTestService(syncs, new(MockHoursStore), new(MockGateway))
	err := svc.Disconnect(context.Background(), "acme")

	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestUpdateBusinessHours_RejectsInvalidConfig(t *testing.T) {
	hours := new(MockHoursStore)
	svc := newTestService(new(MockSyncStore), hours, new(MockGateway))

	bh := domain.DefaultBusinessHours("acme")
	bh.SlotIntervalMinutes = 45 // does not divide an hour

	err := svc.UpdateBusinessHours(context.Background(), bh)
	assert.ErrorIs(t, err, ErrValidation)
	hours.AssertNotCalled(t, "Save")
}

func TestUpdateBusinessHours_SavesValidConfig(t *testing.T) {
	hours := new(MockHoursStore)
	hours.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(new(MockSyncStore), hours, new(MockGateway))
	bh := domain.DefaultBusinessHours("acme")
	bh.SlotIntervalMinutes = 30

	err := svc.UpdateBusinessHours(context.Background(), bh)
	require.NoError(t, err)

	var saveErr = errors.New("disk full")
	hours2 := new(MockHoursStore)
	hours2.On("Save", mock.Anything, mock.Anything).Return(saveErr)
	svc2 := newTestService(new(MockSyncStore), hours2, new(MockGateway))
	assert.ErrorIs(t, svc2.UpdateBusinessHours(context.Background(), bh), saveErr)
}
