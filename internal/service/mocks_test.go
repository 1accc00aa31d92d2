package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/campus-portal/event-portal-api/internal/domain"
)

var testCtx = context.Background()

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *mockUserRepo) Stats(ctx context.Context, recent int) (domain.UserStats, error) {
	args := m.Called(ctx, recent)
	return args.Get(0).(domain.UserStats), args.Error(1)
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventRepo) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventRepo) SlugExists(ctx context.Context, slug string, exceptID uint) (bool, error) {
	args := m.Called(ctx, slug, exceptID)
	return args.Bool(0), args.Error(1)
}

func (m *mockEventRepo) List(ctx context.Context, filter domain.EventFilter, now time.Time) ([]domain.Event, int64, error) {
	args := m.Called(ctx, filter, now)
	return args.Get(0).([]domain.Event), args.Get(1).(int64), args.Error(2)
}

func (m *mockEventRepo) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventRepo) IncrementViews(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEventRepo) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEventRepo) Analytics(ctx context.Context, since time.Time) (domain.EventAnalytics, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(domain.EventAnalytics), args.Error(1)
}

type mockRegistrationRepo struct {
	mock.Mock
}

func (m *mockRegistrationRepo) Create(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	args := m.Called(ctx, reg)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationRepo) Save(ctx context.Context, reg domain.Registration, prev domain.RegistrationStatus) (domain.Registration, error) {
	args := m.Called(ctx, reg, prev)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationRepo) BulkSetStatus(ctx context.Context, ids []uint, status domain.RegistrationStatus) (int64, error) {
	args := m.Called(ctx, ids, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRegistrationRepo) Reconcile(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id uint) (domain.Registration, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationRepo) FindByUserAndEvent(ctx context.Context, userID, eventID uint) (domain.Registration, error) {
	args := m.Called(ctx, userID, eventID)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationRepo) List(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Registration), args.Get(1).(int64), args.Error(2)
}

func (m *mockRegistrationRepo) Stats(ctx context.Context, eventID uint) (domain.RegistrationStats, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(domain.RegistrationStats), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Broadcast(msgType string, payload interface{}) {
	m.Called(msgType, payload)
}

func (m *mockNotifier) SendToRoom(room, msgType string, payload interface{}) {
	m.Called(room, msgType, payload)
}
