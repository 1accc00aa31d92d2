package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository"
)

const (
	minSearchLength  = 2
	defaultTimeframe = "30d"
)

var (
	ErrEventNotFound         = repository.ErrEventNotFound
	ErrEventSlugExists       = repository.ErrEventSlugExists
	ErrEventHasRegistrations = repository.ErrEventHasRegistrations
	ErrNotEventManager       = errors.New("access denied. you can only manage your own events")
	ErrSearchTooShort        = errors.New("search query must be at least 2 characters long")
	ErrInvalidTimeframe      = errors.New("timeframe must be a number of days such as 30d")
)

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	SlugExists(ctx context.Context, slug string, exceptID uint) (bool, error)
	List(ctx context.Context, filter domain.EventFilter, now time.Time) ([]domain.Event, int64, error)
	Update(ctx context.Context, event domain.Event) (domain.Event, error)
	IncrementViews(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	Analytics(ctx context.Context, since time.Time) (domain.EventAnalytics, error)
}

// RegistrationLookup answers whether a user holds a registration for an event.
type RegistrationLookup interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID uint) (domain.Registration, error)
}

type EventService struct {
	repo     EventRepository
	regs     RegistrationLookup
	notifier Notifier
	now      func() time.Time
}

func NewEventService(repo EventRepository, regs RegistrationLookup, notifier Notifier) *EventService {
	return &EventService{
		repo:     repo,
		regs:     regs,
		notifier: notifierOrNop(notifier),
		now:      time.Now,
	}
}

// EventDetail is an event as seen by one caller.
type EventDetail struct {
	Event        domain.Event
	IsRegistered bool
	Registration *domain.RegistrationSummary
}

func (s *EventService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, domain.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter, s.now())
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("s.repo.List -> %w", err)
	}

	return events, filter.Page.Paginate(total), nil
}

// SearchEvents runs a text search over published events.
func (s *EventService) SearchEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, domain.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if len([]rune(filter.Search)) < minSearchLength {
		return nil, domain.Pagination{}, ErrSearchTooShort
	}
	filter.Status = domain.EventPublished

	return s.ListEvents(ctx, filter)
}

// UpcomingEvents returns published events that have not started, soonest first.
func (s *EventService) UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	events, _, err := s.ListEvents(ctx, domain.EventFilter{
		Status:   domain.EventPublished,
		Upcoming: true,
		Page:     domain.NewPage(1, limit, domain.DefaultPageLimit),
	})
	return events, err
}

func (s *EventService) EventsByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.Event, error) {
	events, _, err := s.ListEvents(ctx, domain.EventFilter{
		Status:   domain.EventPublished,
		Category: category,
		Upcoming: true,
		Page:     domain.NewPage(1, limit, domain.DefaultPageLimit),
	})
	return events, err
}

// GetEvent loads the event and counts a view unless caller organizes it. A nil
// caller is an anonymous visitor.
func (s *EventService) GetEvent(ctx context.Context, id uint, caller *domain.User) (EventDetail, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return EventDetail{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if caller == nil || !event.IsOrganizedBy(caller.ID) {
		if err = s.repo.IncrementViews(ctx, id); err != nil {
			return EventDetail{}, fmt.Errorf("s.repo.IncrementViews -> %w", err)
		}
		event.Analytics.Views++
	}

	detail := EventDetail{Event: event}
	if caller == nil {
		return detail, nil
	}

	reg, err := s.regs.FindByUserAndEvent(ctx, caller.ID, id)
	switch {
	case err == nil:
		summary := reg.Summary()
		detail.IsRegistered = true
		detail.Registration = &summary
	case !errors.Is(err, repository.ErrRegistrationNotFound):
		return EventDetail{}, fmt.Errorf("s.regs.FindByUserAndEvent -> %w", err)
	}

	return detail, nil
}

// CreateEvent stores event with organizer as its owner and announces it to
// every connected listener.
func (s *EventService) CreateEvent(ctx context.Context, event domain.Event, organizer domain.User) (domain.Event, error) {
	event.ID = 0
	event.OrganizerID = organizer.ID
	event.OrganizerInfo = domain.OrganizerInfo{
		Name:       organizer.Name,
		Email:      organizer.Email,
		Department: organizer.Department,
		Contact:    organizer.Phone,
	}
	event.Registration.CurrentParticipants = 0
	event.Analytics = domain.Analytics{}

	if err := event.Validate(); err != nil {
		return domain.Event{}, err
	}

	slug, err := s.uniqueSlug(ctx, event.Title, 0)
	if err != nil {
		return domain.Event{}, err
	}
	event.Slug = slug

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	s.notifier.Broadcast(MessageNewEvent, map[string]interface{}{
		"event":   created,
		"message": fmt.Sprintf("New event %q has been published!", created.Title),
	})

	return created, nil
}

func (s *EventService) UpdateEvent(ctx context.Context, id uint, patch domain.EventPatch, caller domain.User) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if !event.CanBeManagedBy(caller) {
		return domain.Event{}, ErrNotEventManager
	}

	patch.Apply(&event)

	if err = event.Validate(); err != nil {
		return domain.Event{}, err
	}

	// the slug is fixed once assigned so event URLs stay stable
	if event.Slug == "" {
		if event.Slug, err = s.uniqueSlug(ctx, event.Title, event.ID); err != nil {
			return domain.Event{}, err
		}
	}

	updated, err := s.repo.Update(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	s.notifier.Broadcast(MessageEventUpdated, map[string]interface{}{
		"event":   updated,
		"message": fmt.Sprintf("Event %q has been updated!", updated.Title),
	})

	return updated, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id uint, caller domain.User) error {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if !event.CanBeManagedBy(caller) {
		return ErrNotEventManager
	}

	if err = s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}

	return nil
}

// Analytics reports status counts and a per-category rollup of the events
// created within timeframe, written as a number of days ("30d").
func (s *EventService) Analytics(ctx context.Context, timeframe string) (domain.EventAnalytics, error) {
	if timeframe == "" {
		timeframe = defaultTimeframe
	}

	window, err := parseTimeframe(timeframe)
	if err != nil {
		return domain.EventAnalytics{}, err
	}

	analytics, err := s.repo.Analytics(ctx, s.now().Add(-window))
	if err != nil {
		return domain.EventAnalytics{}, fmt.Errorf("s.repo.Analytics -> %w", err)
	}
	analytics.Timeframe = timeframe

	return analytics, nil
}

// uniqueSlug derives the slug from title and appends -2, -3, ... while another
// event than exceptID already uses it.
func (s *EventService) uniqueSlug(ctx context.Context, title string, exceptID uint) (string, error) {
	base := domain.Slugify(title)
	if base == "" {
		base = "event"
	}

	slug := base
	for n := 2; ; n++ {
		taken, err := s.repo.SlugExists(ctx, slug, exceptID)
		if err != nil {
			return "", fmt.Errorf("s.repo.SlugExists -> %w", err)
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}

func parseTimeframe(timeframe string) (time.Duration, error) {
	days, err := strconv.Atoi(strings.TrimSuffix(timeframe, "d"))
	if err != nil || days < 1 || !strings.HasSuffix(timeframe, "d") {
		return 0, ErrInvalidTimeframe
	}
	return time.Duration(days) * 24 * time.Hour, nil
}
