package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository/dao"
)

type mockRegistrationDAO struct {
	mock.Mock
	RegistrationDAO
}

func (m *mockRegistrationDAO) Insert(ctx context.Context, reg dao.Registration, holdsSeat bool) (dao.Registration, error) {
	args := m.Called(ctx, reg, holdsSeat)
	return args.Get(0).(dao.Registration), args.Error(1)
}

func (m *mockRegistrationDAO) Transition(ctx context.Context, reg dao.Registration, prevStatus string, seatDelta int) (dao.Registration, error) {
	args := m.Called(ctx, reg, prevStatus, seatDelta)
	return args.Get(0).(dao.Registration), args.Error(1)
}

func (m *mockRegistrationDAO) BulkSetStatus(ctx context.Context, ids []uint, status string, seatStatuses []string) (int64, error) {
	args := m.Called(ctx, ids, status, seatStatuses)
	return args.Get(0).(int64), args.Error(1)
}

func TestRegistrationRepository_SaveSeatDelta(t *testing.T) {
	tests := []struct {
		prev, next domain.RegistrationStatus
		delta      int
	}{
		{domain.StatusConfirmed, domain.StatusCancelled, -1},
		{domain.StatusAttended, domain.StatusNoShow, -1},
		{domain.StatusConfirmed, domain.StatusAttended, 0},
		{domain.StatusAttended, domain.StatusAttended, 0},
		{domain.StatusPending, domain.StatusConfirmed, 1},
		{domain.StatusPending, domain.StatusCancelled, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.prev)+"->"+string(tt.next), func(t *testing.T) {
			m := &mockRegistrationDAO{}
			m.On("Transition", mock.Anything, mock.MatchedBy(func(r dao.Registration) bool {
				return r.Status == string(tt.next)
			}), string(tt.prev), tt.delta).Return(dao.Registration{ID: 1, Status: string(tt.next)}, nil)

			repo := NewRegistrationRepository(m)
			saved, err := repo.Save(context.Background(), domain.Registration{ID: 1, Status: tt.next}, tt.prev)
			require.NoError(t, err)
			assert.Equal(t, tt.next, saved.Status)
			m.AssertExpectations(t)
		})
	}
}

func TestRegistrationRepository_Create(t *testing.T) {
	m := &mockRegistrationDAO{}
	m.On("Insert", mock.Anything, mock.Anything, true).
		Return(dao.Registration{}, dao.ErrEventFull)

	_, err := NewRegistrationRepository(m).Create(context.Background(), domain.Registration{Status: domain.StatusConfirmed})
	assert.ErrorIs(t, err, ErrEventFull)
	assert.True(t, errors.Is(err, dao.ErrEventFull))
	m.AssertExpectations(t)
}

func TestRegistrationRepository_BulkSetStatusPassesSeatStatuses(t *testing.T) {
	m := &mockRegistrationDAO{}
	m.On("BulkSetStatus", mock.Anything, []uint{1, 2}, "attended", []string{"confirmed", "attended"}).
		Return(int64(2), nil)

	changed, err := NewRegistrationRepository(m).BulkSetStatus(context.Background(), []uint{1, 2}, domain.StatusAttended)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)
	m.AssertExpectations(t)
}

func TestRegistrationDaoToDomain_Summaries(t *testing.T) {
	sid := "CS-1"
	reg := registrationDaoToDomain(dao.Registration{
		ID:     3,
		User:   dao.User{ID: 4, Name: "Ada", StudentID: &sid},
		Event:  dao.Event{ID: 5, Title: "Hack", Venue: dao.Venue{Name: "Hall"}},
		Status: "confirmed",
	})

	require.NotNil(t, reg.User)
	assert.Equal(t, "CS-1", reg.User.StudentID)
	require.NotNil(t, reg.Event)
	assert.Equal(t, "Hall", reg.Event.Venue)
	assert.NotNil(t, reg.Answers)

	bare := registrationDaoToDomain(dao.Registration{ID: 6})
	assert.Nil(t, bare.User)
	assert.Nil(t, bare.Event)
}
