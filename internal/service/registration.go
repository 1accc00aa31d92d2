package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository"
)

const (
	defaultAnalyticsWindow = 30 * 24 * time.Hour
	recentRegistrations    = 10
)

var (
	ErrRegistrationNotFound  = repository.ErrRegistrationNotFound
	ErrAlreadyRegistered     = repository.ErrAlreadyRegistered
	ErrRegistrationChanged   = repository.ErrRegistrationChanged
	ErrAlreadyCancelled      = domain.ErrAlreadyCancelled
	ErrCancelAfterAttendance = domain.ErrCancelAfterAttendance
	ErrCancellationDeadline  = domain.ErrCancellationDeadline
	ErrFeedbackNotAttended   = domain.ErrFeedbackNotAttended
	ErrFeedbackDisabled      = domain.ErrFeedbackDisabled
	ErrEventNotPublished     = errors.New("event is not available for registration")
	ErrRegistrationClosed    = errors.New("registration is closed")
	ErrNotRegistrationOwner  = errors.New("access denied. you can only access your own registrations")
	ErrEmptyBulkUpdate       = errors.New("registrationIds must not be empty")
)

// RegistrationClosedError names the state that keeps an event from taking
// registrations. It matches ErrRegistrationClosed.
type RegistrationClosedError struct {
	State domain.RegistrationState
}

func (e *RegistrationClosedError) Error() string {
	return "registration is " + string(e.State)
}

func (e *RegistrationClosedError) Is(target error) bool {
	return target == ErrRegistrationClosed
}

type RegistrationRepository interface {
	Create(ctx context.Context, reg domain.Registration) (domain.Registration, error)
	Save(ctx context.Context, reg domain.Registration, prev domain.RegistrationStatus) (domain.Registration, error)
	BulkSetStatus(ctx context.Context, ids []uint, status domain.RegistrationStatus) (int64, error)
	Reconcile(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id uint) (domain.Registration, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID uint) (domain.Registration, error)
	List(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int64, error)
	Stats(ctx context.Context, eventID uint) (domain.RegistrationStats, error)
}

type EventReader interface {
	FindByID(ctx context.Context, id uint) (domain.Event, error)
}

type RegistrationService struct {
	repo     RegistrationRepository
	events   EventReader
	notifier Notifier
	cutoff   time.Duration
	now      func() time.Time
}

// NewRegistrationService builds the service. cutoff is how long before the
// event start a registration can still be cancelled; zero means 24 hours.
func NewRegistrationService(repo RegistrationRepository, events EventReader, notifier Notifier, cutoff time.Duration) *RegistrationService {
	if cutoff <= 0 {
		cutoff = domain.DefaultCancellationCutoff
	}

	return &RegistrationService{
		repo:     repo,
		events:   events,
		notifier: notifierOrNop(notifier),
		cutoff:   cutoff,
		now:      time.Now,
	}
}

// Register signs user up for the event. The seat is claimed in the same
// transaction that stores the registration.
func (s *RegistrationService) Register(ctx context.Context, user domain.User, eventID uint, answers map[string]interface{}, meta domain.RequestMetadata) (domain.Registration, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	if event.Status != domain.EventPublished {
		return domain.Registration{}, ErrEventNotPublished
	}

	if state := event.RegistrationStatus(s.now()); state != domain.RegistrationOpen {
		return domain.Registration{}, &RegistrationClosedError{State: state}
	}

	_, err = s.repo.FindByUserAndEvent(ctx, user.ID, eventID)
	if err == nil {
		return domain.Registration{}, ErrAlreadyRegistered
	}
	if !errors.Is(err, repository.ErrRegistrationNotFound) {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByUserAndEvent -> %w", err)
	}

	clean, err := domain.ValidateAnswers(event.Registration.Fields, answers)
	if err != nil {
		return domain.Registration{}, err
	}

	created, err := s.repo.Create(ctx, domain.NewRegistration(user.ID, event, clean, meta))
	if err != nil {
		if errors.Is(err, repository.ErrEventFull) {
			return domain.Registration{}, &RegistrationClosedError{State: domain.RegistrationFull}
		}

		return domain.Registration{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	userSummary, eventSummary := user.Summary(), event.Summary()
	created.User, created.Event = &userSummary, &eventSummary

	s.notifier.SendToRoom(RoomAdmin, MessageNewRegistration, map[string]interface{}{
		"registration": created.Summary(),
		"event":        eventSummary,
		"user":         userSummary,
		"message":      fmt.Sprintf("%s registered for %q", user.Name, event.Title),
	})

	return created, nil
}

// Cancel withdraws the caller's own registration and frees its seat.
func (s *RegistrationService) Cancel(ctx context.Context, caller domain.User, id uint, reason string) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if reg.UserID != caller.ID {
		return domain.Registration{}, ErrNotRegistrationOwner
	}

	start, err := s.eventStart(ctx, reg)
	if err != nil {
		return domain.Registration{}, err
	}

	prev := reg.Status
	if err = reg.Cancel(s.now().UTC(), start, s.cutoff, reason); err != nil {
		return domain.Registration{}, err
	}

	saved, err := s.repo.Save(ctx, reg, prev)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Save -> %w", err)
	}

	return saved, nil
}

// GetRegistration returns the registration to its owner or to an admin.
func (s *RegistrationService) GetRegistration(ctx context.Context, caller domain.User, id uint) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if reg.UserID != caller.ID && !caller.IsAdmin() {
		return domain.Registration{}, ErrNotRegistrationOwner
	}

	return reg, nil
}

func (s *RegistrationService) MyRegistrations(ctx context.Context, userID uint, status domain.RegistrationStatus, page domain.Page) ([]domain.Registration, domain.Pagination, error) {
	regs, total, err := s.repo.List(ctx, domain.RegistrationFilter{UserID: userID, Status: status, Page: page})
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("s.repo.List -> %w", err)
	}

	return regs, page.Paginate(total), nil
}

type FeedbackInput struct {
	Rating    *int
	Comments  string
	Responses map[string]interface{}
}

func (s *RegistrationService) SubmitFeedback(ctx context.Context, caller domain.User, id uint, in FeedbackInput) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if reg.UserID != caller.ID {
		return domain.Registration{}, ErrNotRegistrationOwner
	}

	if err = reg.SubmitFeedback(s.now().UTC(), in.Rating, in.Comments, in.Responses); err != nil {
		return domain.Registration{}, err
	}

	event, err := s.events.FindByID(ctx, reg.EventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}
	if !event.Feedback.Enabled {
		return domain.Registration{}, ErrFeedbackDisabled
	}
	if err = domain.ValidateFeedbackResponses(event.Feedback.Questions, in.Responses); err != nil {
		return domain.Registration{}, err
	}

	saved, err := s.repo.Save(ctx, reg, reg.Status)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Save -> %w", err)
	}

	return saved, nil
}

type EventRegistrations struct {
	Registrations []domain.Registration
	Pagination    domain.Pagination
	Stats         domain.RegistrationStats
}

func (s *RegistrationService) EventRegistrations(ctx context.Context, eventID uint, status domain.RegistrationStatus, page domain.Page) (EventRegistrations, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return EventRegistrations{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	regs, total, err := s.repo.List(ctx, domain.RegistrationFilter{EventID: eventID, Status: status, Page: page})
	if err != nil {
		return EventRegistrations{}, fmt.Errorf("s.repo.List -> %w", err)
	}

	stats, err := s.repo.Stats(ctx, eventID)
	if err != nil {
		return EventRegistrations{}, fmt.Errorf("s.repo.Stats -> %w", err)
	}

	return EventRegistrations{Registrations: regs, Pagination: page.Paginate(total), Stats: stats}, nil
}

// MarkAttendance records a check-in or check-out. A check-in promotes a
// confirmed registration to attended, which keeps its seat.
func (s *RegistrationService) MarkAttendance(ctx context.Context, id uint, checkIn bool, notes string) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if reg.Status == domain.StatusCancelled {
		return domain.Registration{}, ErrAlreadyCancelled
	}

	prev := reg.Status
	reg.MarkAttendance(s.now().UTC(), checkIn, notes)

	saved, err := s.repo.Save(ctx, reg, prev)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Save -> %w", err)
	}

	return saved, nil
}

// Analytics aggregates registrations, of one event when eventID is not 0, and
// lists the latest ones created in [from, to]. The range defaults to the last
// 30 days.
func (s *RegistrationService) Analytics(ctx context.Context, eventID uint, from, to *time.Time) (domain.RegistrationAnalytics, error) {
	end := s.now().UTC()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultAnalyticsWindow)
	if from != nil {
		start = *from
	}

	stats, err := s.repo.Stats(ctx, eventID)
	if err != nil {
		return domain.RegistrationAnalytics{}, fmt.Errorf("s.repo.Stats -> %w", err)
	}

	recent, _, err := s.repo.List(ctx, domain.RegistrationFilter{
		EventID: eventID,
		From:    &start,
		To:      &end,
		Page:    domain.Page{Number: 1, Limit: recentRegistrations},
	})
	if err != nil {
		return domain.RegistrationAnalytics{}, fmt.Errorf("s.repo.List -> %w", err)
	}

	return domain.RegistrationAnalytics{
		Overview:            stats,
		RecentRegistrations: recent,
		DateRange:           domain.DateRange{Start: start, End: end},
	}, nil
}

// BulkSetStatus is an administrative override: it writes status to every
// listed registration without the per-registration rules, then recomputes
// the counters of the affected events.
func (s *RegistrationService) BulkSetStatus(ctx context.Context, ids []uint, status domain.RegistrationStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrEmptyBulkUpdate
	}

	changed, err := s.repo.BulkSetStatus(ctx, ids, status)
	if err != nil {
		return 0, fmt.Errorf("s.repo.BulkSetStatus -> %w", err)
	}

	return changed, nil
}

func (s *RegistrationService) Reconcile(ctx context.Context) (int64, error) {
	drifted, err := s.repo.Reconcile(ctx)
	if err != nil {
		return 0, fmt.Errorf("s.repo.Reconcile -> %w", err)
	}

	return drifted, nil
}

func (s *RegistrationService) eventStart(ctx context.Context, reg domain.Registration) (time.Time, error) {
	if reg.Event != nil && !reg.Event.DateTime.Start.IsZero() {
		return reg.Event.DateTime.Start, nil
	}

	event, err := s.events.FindByID(ctx, reg.EventID)
	if err != nil {
		return time.Time{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	return event.DateTime.Start, nil
}
