package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository"
)

var serviceNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validEvent() domain.Event {
	e := domain.NewEvent()
	e.Title = "Tech Fest 2026"
	e.Description = "Annual technical festival"
	e.Category = domain.CategoryTechnical
	e.Venue = domain.Venue{Name: "Main Hall", Capacity: 200}
	e.DateTime = domain.Schedule{
		Start:                serviceNow.Add(7 * 24 * time.Hour),
		End:                  serviceNow.Add(7*24*time.Hour + 8*time.Hour),
		RegistrationDeadline: serviceNow.Add(5 * 24 * time.Hour),
	}
	e.Registration.MaxParticipants = 2
	return e
}

func newTestEventService(repo *mockEventRepo, regs *mockRegistrationRepo, n Notifier) *EventService {
	svc := NewEventService(repo, regs, n)
	svc.now = fixedClock(serviceNow)
	return svc
}

func TestEventService_CreateEvent(t *testing.T) {
	admin := domain.User{ID: 9, Name: "Admin", Email: "admin@x.com", Role: domain.RoleAdmin, Phone: "555"}

	t.Run("organizer comes from the caller and slug is unique", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("SlugExists", testCtx, "tech-fest-2026", uint(0)).Return(true, nil)
		repo.On("SlugExists", testCtx, "tech-fest-2026-2", uint(0)).Return(false, nil)
		repo.On("Create", testCtx, mock.MatchedBy(func(e domain.Event) bool {
			return e.OrganizerID == 9 && e.OrganizerInfo.Email == "admin@x.com" &&
				e.OrganizerInfo.Contact == "555" && e.Slug == "tech-fest-2026-2" &&
				e.Registration.CurrentParticipants == 0
		})).Return(domain.Event{ID: 1, Title: "Tech Fest 2026", Status: domain.EventPublished}, nil)

		n := &mockNotifier{}
		n.On("Broadcast", MessageNewEvent, mock.Anything).Once()

		in := validEvent()
		in.OrganizerID = 1234
		in.Registration.CurrentParticipants = 50

		created, err := newTestEventService(repo, nil, n).CreateEvent(testCtx, in, admin)
		require.NoError(t, err)
		assert.Equal(t, uint(1), created.ID)
		repo.AssertExpectations(t)
		n.AssertExpectations(t)
	})

	t.Run("end before start", func(t *testing.T) {
		in := validEvent()
		in.DateTime.End = in.DateTime.Start

		_, err := newTestEventService(&mockEventRepo{}, nil, nil).CreateEvent(testCtx, in, admin)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrEndBeforeStart)
	})

	t.Run("deadline after start", func(t *testing.T) {
		in := validEvent()
		in.DateTime.RegistrationDeadline = in.DateTime.Start.Add(time.Hour)

		_, err := newTestEventService(&mockEventRepo{}, nil, nil).CreateEvent(testCtx, in, admin)
		assert.ErrorIs(t, err, domain.ErrDeadlineAfterStart)
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	stored := validEvent()
	stored.ID = 5
	stored.OrganizerID = 9
	stored.Slug = "tech-fest-2026"
	stored.Registration.CurrentParticipants = 2

	t.Run("stranger is refused", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)

		title := "Hijacked"
		_, err := newTestEventService(repo, nil, nil).UpdateEvent(testCtx, 5, domain.EventPatch{Title: &title},
			domain.User{ID: 2, Role: domain.RoleStudent})
		assert.ErrorIs(t, err, ErrNotEventManager)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("date invariants are checked on update", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)

		bad := stored.DateTime
		bad.End = bad.Start.Add(-time.Hour)
		_, err := newTestEventService(repo, nil, nil).UpdateEvent(testCtx, 5, domain.EventPatch{DateTime: &bad},
			domain.User{ID: 9})
		assert.ErrorIs(t, err, domain.ErrEndBeforeStart)
	})

	t.Run("capacity below the current count", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)

		settings := stored.Registration
		settings.MaxParticipants = 1
		_, err := newTestEventService(repo, nil, nil).UpdateEvent(testCtx, 5, domain.EventPatch{Registration: &settings},
			domain.User{ID: 1, Role: domain.RoleAdmin})
		assert.ErrorIs(t, err, domain.ErrCapacityBelowCount)
	})

	t.Run("title change keeps the slug and the counter", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)
		repo.On("Update", testCtx, mock.MatchedBy(func(e domain.Event) bool {
			return e.Slug == "tech-fest-2026" && e.Title == "Robotics Day" &&
				e.Registration.CurrentParticipants == 2 && e.OrganizerID == 9
		})).Return(domain.Event{ID: 5, Title: "Robotics Day"}, nil)

		n := &mockNotifier{}
		n.On("Broadcast", MessageEventUpdated, mock.Anything).Once()

		title := "Robotics Day"
		settings := stored.Registration
		settings.CurrentParticipants = 0
		_, err := newTestEventService(repo, nil, n).UpdateEvent(testCtx, 5,
			domain.EventPatch{Title: &title, Registration: &settings}, domain.User{ID: 1, Role: domain.RoleAdmin})
		require.NoError(t, err)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "SlugExists", mock.Anything, mock.Anything, mock.Anything)
		n.AssertExpectations(t)
	})

	t.Run("record without a slug gets one", func(t *testing.T) {
		legacy := stored
		legacy.Slug = ""

		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(legacy, nil)
		repo.On("SlugExists", testCtx, "tech-fest-2026", uint(5)).Return(false, nil)
		repo.On("Update", testCtx, mock.MatchedBy(func(e domain.Event) bool {
			return e.Slug == "tech-fest-2026"
		})).Return(legacy, nil)

		_, err := newTestEventService(repo, nil, nil).UpdateEvent(testCtx, 5, domain.EventPatch{},
			domain.User{ID: 9})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestEventService_GetEvent(t *testing.T) {
	stored := validEvent()
	stored.ID = 5
	stored.OrganizerID = 9

	t.Run("anonymous visit counts a view", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)
		repo.On("IncrementViews", testCtx, uint(5)).Return(nil)

		detail, err := newTestEventService(repo, &mockRegistrationRepo{}, nil).GetEvent(testCtx, 5, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), detail.Event.Analytics.Views)
		assert.False(t, detail.IsRegistered)
	})

	t.Run("organizer visit is not counted", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)
		regs := &mockRegistrationRepo{}
		regs.On("FindByUserAndEvent", testCtx, uint(9), uint(5)).Return(domain.Registration{}, repository.ErrRegistrationNotFound)

		detail, err := newTestEventService(repo, regs, nil).GetEvent(testCtx, 5, &domain.User{ID: 9})
		require.NoError(t, err)
		assert.Zero(t, detail.Event.Analytics.Views)
		repo.AssertNotCalled(t, "IncrementViews", mock.Anything, mock.Anything)
	})

	t.Run("registered caller sees the summary", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)
		repo.On("IncrementViews", testCtx, uint(5)).Return(nil)
		regs := &mockRegistrationRepo{}
		regs.On("FindByUserAndEvent", testCtx, uint(3), uint(5)).
			Return(domain.Registration{ID: 44, UserID: 3, EventID: 5, Status: domain.StatusConfirmed}, nil)

		detail, err := newTestEventService(repo, regs, nil).GetEvent(testCtx, 5, &domain.User{ID: 3})
		require.NoError(t, err)
		assert.True(t, detail.IsRegistered)
		require.NotNil(t, detail.Registration)
		assert.Equal(t, uint(44), detail.Registration.ID)
	})

	t.Run("missing event", func(t *testing.T) {
		repo := &mockEventRepo{}
		repo.On("FindByID", testCtx, uint(6)).Return(domain.Event{}, repository.ErrEventNotFound)

		_, err := newTestEventService(repo, nil, nil).GetEvent(testCtx, 6, nil)
		assert.ErrorIs(t, err, ErrEventNotFound)
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	stored := validEvent()
	stored.ID = 5
	stored.OrganizerID = 9

	repo := &mockEventRepo{}
	repo.On("FindByID", testCtx, uint(5)).Return(stored, nil)
	repo.On("Delete", testCtx, uint(5)).Return(repository.ErrEventHasRegistrations)

	svc := newTestEventService(repo, nil, nil)

	err := svc.DeleteEvent(testCtx, 5, domain.User{ID: 2, Role: domain.RoleStudent})
	assert.ErrorIs(t, err, ErrNotEventManager)

	err = svc.DeleteEvent(testCtx, 5, domain.User{ID: 9, Role: domain.RoleStudent})
	assert.ErrorIs(t, err, ErrEventHasRegistrations)
}

func TestEventService_SearchEvents(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newTestEventService(repo, nil, nil)

	_, _, err := svc.SearchEvents(testCtx, domain.EventFilter{Search: " a "})
	assert.ErrorIs(t, err, ErrSearchTooShort)

	page := domain.NewPage(1, 10, 10)
	repo.On("List", testCtx, domain.EventFilter{Search: "ai", Status: domain.EventPublished, Page: page}, serviceNow).
		Return([]domain.Event{{ID: 1}}, int64(1), nil)

	events, pagination, err := svc.SearchEvents(testCtx, domain.EventFilter{Search: " ai ", Page: page})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, int64(1), pagination.Total)
}

func TestEventService_Analytics(t *testing.T) {
	repo := &mockEventRepo{}
	repo.On("Analytics", testCtx, serviceNow.Add(-7*24*time.Hour)).
		Return(domain.EventAnalytics{Overview: domain.StatusOverview{Total: 4}}, nil)

	svc := newTestEventService(repo, nil, nil)

	out, err := svc.Analytics(testCtx, "7d")
	require.NoError(t, err)
	assert.Equal(t, "7d", out.Timeframe)
	assert.Equal(t, int64(4), out.Overview.Total)

	for _, bad := range []string{"7", "d", "-3d", "week"} {
		_, err = svc.Analytics(testCtx, bad)
		assert.ErrorIs(t, err, ErrInvalidTimeframe, bad)
	}
}
