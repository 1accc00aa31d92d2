package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository/dao"
)

var (
	ErrEventNotFound         = dao.ErrEventNotFound
	ErrEventSlugExists       = dao.ErrEventSlugExists
	ErrEventHasRegistrations = dao.ErrEventHasRegistrations
)

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	SlugExists(ctx context.Context, slug string, exceptID uint) (bool, error)
	List(ctx context.Context, q dao.EventQuery) ([]dao.Event, int64, error)
	Update(ctx context.Context, event dao.Event) (dao.Event, error)
	IncrementViews(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	CountByStatus(ctx context.Context) ([]dao.StatusCount, error)
	RollupByCategory(ctx context.Context, since time.Time) ([]dao.CategoryRollup, error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, eventDomainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return eventDaoToDomain(created), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return eventDaoToDomain(found), nil
}

func (r *EventRepository) SlugExists(ctx context.Context, slug string, exceptID uint) (bool, error) {
	exists, err := r.dao.SlugExists(ctx, slug, exceptID)
	if err != nil {
		return false, fmt.Errorf("r.dao.SlugExists -> %w", err)
	}

	return exists, nil
}

// List applies filter; Upcoming restricts to events starting at or after now.
func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter, now time.Time) ([]domain.Event, int64, error) {
	q := dao.EventQuery{
		Status:       string(filter.Status),
		Category:     string(filter.Category),
		StartsFrom:   utcPtr(filter.From),
		StartsBefore: utcPtr(filter.To),
		Search:       filter.Search,
		OrderBy:      domain.EventSortColumns[filter.SortBy],
		Desc:         filter.Desc,
		Offset:       filter.Page.Offset(),
		Limit:        filter.Page.Limit,
	}
	if filter.Upcoming {
		utc := now.UTC()
		q.StartsAfter = &utc
	}

	found, total, err := r.dao.List(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.List -> %w", err)
	}

	events := make([]domain.Event, 0, len(found))
	for _, e := range found {
		events = append(events, eventDaoToDomain(e))
	}

	return events, total, nil
}

func (r *EventRepository) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	updated, err := r.dao.Update(ctx, eventDomainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return eventDaoToDomain(updated), nil
}

func (r *EventRepository) IncrementViews(ctx context.Context, id uint) error {
	if err := r.dao.IncrementViews(ctx, id); err != nil {
		return fmt.Errorf("r.dao.IncrementViews -> %w", err)
	}

	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *EventRepository) Analytics(ctx context.Context, since time.Time) (domain.EventAnalytics, error) {
	counts, err := r.dao.CountByStatus(ctx)
	if err != nil {
		return domain.EventAnalytics{}, fmt.Errorf("r.dao.CountByStatus -> %w", err)
	}

	rollups, err := r.dao.RollupByCategory(ctx, since.UTC())
	if err != nil {
		return domain.EventAnalytics{}, fmt.Errorf("r.dao.RollupByCategory -> %w", err)
	}

	var out domain.EventAnalytics
	for _, c := range counts {
		out.Overview.Total += c.Count
		switch domain.EventStatus(c.Status) {
		case domain.EventPublished:
			out.Overview.Published = c.Count
		case domain.EventDraft:
			out.Overview.Draft = c.Count
		case domain.EventCancelled:
			out.Overview.Cancelled = c.Count
		case domain.EventCompleted:
			out.Overview.Completed = c.Count
		}
	}

	out.Analytics = make([]domain.CategoryRollup, 0, len(rollups))
	for _, ro := range rollups {
		out.Analytics = append(out.Analytics, domain.CategoryRollup{
			Category:           domain.Category(ro.Category),
			Count:              ro.Count,
			TotalViews:         ro.TotalViews,
			TotalRegistrations: ro.TotalRegistrations,
		})
	}

	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func eventDomainToDao(e domain.Event) dao.Event {
	fields := make([]dao.RegistrationField, 0, len(e.Registration.Fields))
	for _, f := range e.Registration.Fields {
		fields = append(fields, dao.RegistrationField{Name: f.Name, Type: string(f.Type), Required: f.Required, Options: f.Options})
	}

	images := make([]dao.Image, 0, len(e.Images))
	for _, img := range e.Images {
		images = append(images, dao.Image(img))
	}

	attachments := make([]dao.Attachment, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		attachments = append(attachments, dao.Attachment(a))
	}

	prizes := make([]dao.Prize, 0, len(e.Prizes))
	for _, p := range e.Prizes {
		prizes = append(prizes, dao.Prize(p))
	}

	questions := make([]dao.FeedbackQuestion, 0, len(e.Feedback.Questions))
	for _, q := range e.Feedback.Questions {
		questions = append(questions, dao.FeedbackQuestion{Question: q.Question, Type: string(q.Type), Required: q.Required, Options: q.Options})
	}

	venue := dao.Venue{Name: e.Venue.Name, Address: e.Venue.Address, Capacity: e.Venue.Capacity}
	if e.Venue.Location != nil {
		lat, lng := e.Venue.Location.Latitude, e.Venue.Location.Longitude
		venue.Latitude, venue.Longitude = &lat, &lng
	}

	var pattern *dao.RecurringPattern
	if e.RecurringPattern != nil {
		pattern = &dao.RecurringPattern{
			Frequency: e.RecurringPattern.Frequency,
			Interval:  e.RecurringPattern.Interval,
			EndDate:   utcPtr(e.RecurringPattern.EndDate),
		}
	}

	return dao.Event{
		ID:                   e.ID,
		Title:                e.Title,
		Description:          e.Description,
		ShortDescription:     e.ShortDescription,
		Category:             string(e.Category),
		Tags:                 nonNil(e.Tags),
		Slug:                 e.Slug,
		OrganizerID:          e.OrganizerID,
		OrganizerInfo:        dao.OrganizerInfo(e.OrganizerInfo),
		Venue:                venue,
		StartAt:              e.DateTime.Start.UTC(),
		EndAt:                e.DateTime.End.UTC(),
		RegistrationDeadline: e.DateTime.RegistrationDeadline.UTC(),
		RegistrationRequired: e.Registration.IsRequired,
		MaxParticipants:      e.Registration.MaxParticipants,
		CurrentParticipants:  e.Registration.CurrentParticipants,
		Fee:                  e.Registration.Fee,
		RegistrationFields:   fields,
		Status:               string(e.Status),
		Visibility:           string(e.Visibility),
		TargetAudience:       nonNil(e.TargetAudience),
		Images:               images,
		Attachments:          attachments,
		Requirements:         nonNil(e.Requirements),
		Prizes:               prizes,
		SocialMedia:          datatypes.NewJSONType(dao.SocialMedia(e.SocialMedia)),
		Views:                e.Analytics.Views,
		Interests:            e.Analytics.Interests,
		Shares:               e.Analytics.Shares,
		FeedbackEnabled:      e.Feedback.Enabled,
		FeedbackQuestions:    questions,
		Reminder24h:          e.Notifications.Reminder24h,
		Reminder1h:           e.Notifications.Reminder1h,
		UpdateNotifications:  e.Notifications.UpdateNotifications,
		IsRecurring:          e.IsRecurring,
		RecurringPattern:     pattern,
	}
}

func eventDaoToDomain(e dao.Event) domain.Event {
	fields := make([]domain.RegistrationField, 0, len(e.RegistrationFields))
	for _, f := range e.RegistrationFields {
		fields = append(fields, domain.RegistrationField{Name: f.Name, Type: domain.FieldType(f.Type), Required: f.Required, Options: f.Options})
	}

	images := make([]domain.Image, 0, len(e.Images))
	for _, img := range e.Images {
		images = append(images, domain.Image(img))
	}

	attachments := make([]domain.Attachment, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		attachments = append(attachments, domain.Attachment(a))
	}

	prizes := make([]domain.Prize, 0, len(e.Prizes))
	for _, p := range e.Prizes {
		prizes = append(prizes, domain.Prize(p))
	}

	questions := make([]domain.FeedbackQuestion, 0, len(e.FeedbackQuestions))
	for _, q := range e.FeedbackQuestions {
		questions = append(questions, domain.FeedbackQuestion{Question: q.Question, Type: domain.QuestionType(q.Type), Required: q.Required, Options: q.Options})
	}

	venue := domain.Venue{Name: e.Venue.Name, Address: e.Venue.Address, Capacity: e.Venue.Capacity}
	if e.Venue.Latitude != nil && e.Venue.Longitude != nil {
		venue.Location = &domain.Location{Latitude: *e.Venue.Latitude, Longitude: *e.Venue.Longitude}
	}

	var pattern *domain.RecurringPattern
	if e.RecurringPattern != nil {
		pattern = &domain.RecurringPattern{
			Frequency: e.RecurringPattern.Frequency,
			Interval:  e.RecurringPattern.Interval,
			EndDate:   e.RecurringPattern.EndDate,
		}
	}

	return domain.Event{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		ShortDescription: e.ShortDescription,
		Category:         domain.Category(e.Category),
		Tags:             nonNil(e.Tags),
		Slug:             e.Slug,
		OrganizerID:      e.OrganizerID,
		OrganizerInfo:    domain.OrganizerInfo(e.OrganizerInfo),
		Venue:            venue,
		DateTime: domain.Schedule{
			Start:                e.StartAt,
			End:                  e.EndAt,
			RegistrationDeadline: e.RegistrationDeadline,
		},
		Registration: domain.RegistrationSettings{
			IsRequired:          e.RegistrationRequired,
			MaxParticipants:     e.MaxParticipants,
			CurrentParticipants: e.CurrentParticipants,
			Fee:                 e.Fee,
			Fields:              fields,
		},
		Status:         domain.EventStatus(e.Status),
		Visibility:     domain.Visibility(e.Visibility),
		TargetAudience: nonNil(e.TargetAudience),
		Images:         images,
		Attachments:    attachments,
		Requirements:   nonNil(e.Requirements),
		Prizes:         prizes,
		SocialMedia:    domain.SocialMedia(e.SocialMedia.Data()),
		Analytics: domain.Analytics{
			Views:     e.Views,
			Interests: e.Interests,
			Shares:    e.Shares,
		},
		Feedback: domain.FeedbackSettings{
			Enabled:   e.FeedbackEnabled,
			Questions: questions,
		},
		Notifications: domain.NotificationSettings{
			Reminder24h:         e.Reminder24h,
			Reminder1h:          e.Reminder1h,
			UpdateNotifications: e.UpdateNotifications,
		},
		IsRecurring:      e.IsRecurring,
		RecurringPattern: pattern,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
