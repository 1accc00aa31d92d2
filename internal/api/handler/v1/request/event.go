package request

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/campus-portal/event-portal-api/internal/domain"
)

// RegistrationSettings omits the participant counter, which clients never set.
type RegistrationSettings struct {
	IsRequired      *bool                      `json:"isRequired"`
	MaxParticipants int                        `json:"maxParticipants"`
	Fee             float64                    `json:"fee"`
	Fields          []domain.RegistrationField `json:"fields"`
}

func (r *RegistrationSettings) toDomain() domain.RegistrationSettings {
	settings := domain.RegistrationSettings{
		IsRequired:      true,
		MaxParticipants: r.MaxParticipants,
		Fee:             r.Fee,
		Fields:          r.Fields,
	}
	if r.IsRequired != nil {
		settings.IsRequired = *r.IsRequired
	}
	return settings
}

// FeedbackSettings keeps enabled optional so a body carrying only questions
// does not switch feedback off.
type FeedbackSettings struct {
	Enabled   *bool                     `json:"enabled"`
	Questions []domain.FeedbackQuestion `json:"questions"`
}

func (f *FeedbackSettings) toPatch() *domain.FeedbackPatch {
	return &domain.FeedbackPatch{Enabled: f.Enabled, Questions: f.Questions}
}

type CreateEventRequest struct {
	Title            string                       `json:"title"`
	Description      string                       `json:"description"`
	ShortDescription string                       `json:"shortDescription"`
	Category         string                       `json:"category"`
	Tags             []string                     `json:"tags"`
	Venue            domain.Venue                 `json:"venue"`
	DateTime         domain.Schedule              `json:"dateTime"`
	Registration     *RegistrationSettings        `json:"registration"`
	Status           string                       `json:"status"`
	Visibility       string                       `json:"visibility"`
	TargetAudience   []string                     `json:"targetAudience"`
	Images           []domain.Image               `json:"images"`
	Attachments      []domain.Attachment          `json:"attachments"`
	Requirements     []string                     `json:"requirements"`
	Prizes           []domain.Prize               `json:"prizes"`
	SocialMedia      domain.SocialMedia           `json:"socialMedia"`
	Feedback         *FeedbackSettings            `json:"feedback"`
	Notifications    *domain.NotificationSettings `json:"notifications"`
	IsRecurring      bool                         `json:"isRecurring"`
	RecurringPattern *domain.RecurringPattern     `json:"recurringPattern"`
}

// Validate covers what the body must carry; the record rules and date
// invariants are checked again on the assembled event.
func (req *CreateEventRequest) Validate() error {
	return firstError(
		field("title", strings.TrimSpace(req.Title), validation.Required, validation.Length(1, 200)),
		field("description", req.Description, validation.Required, validation.Length(1, 2000)),
		field("category", req.Category, validation.Required),
		field("venue.name", req.Venue.Name, validation.Required),
		field("dateTime.start", req.DateTime.Start, validation.Required),
		field("dateTime.end", req.DateTime.End, validation.Required),
		field("dateTime.registrationDeadline", req.DateTime.RegistrationDeadline, validation.Required),
	)
}

func (req *CreateEventRequest) ToDomain() domain.Event {
	e := domain.NewEvent()
	e.Title = strings.TrimSpace(req.Title)
	e.Description = req.Description
	e.ShortDescription = req.ShortDescription
	e.Category = domain.Category(req.Category)
	e.Tags = req.Tags
	e.Venue = req.Venue
	e.DateTime = req.DateTime
	e.TargetAudience = req.TargetAudience
	e.Images = req.Images
	e.Attachments = req.Attachments
	e.Requirements = req.Requirements
	e.Prizes = req.Prizes
	e.SocialMedia = req.SocialMedia
	e.IsRecurring = req.IsRecurring
	e.RecurringPattern = req.RecurringPattern

	if req.Registration != nil {
		e.Registration = req.Registration.toDomain()
	}
	if req.Status != "" {
		e.Status = domain.EventStatus(req.Status)
	}
	if req.Visibility != "" {
		e.Visibility = domain.Visibility(req.Visibility)
	}
	if req.Feedback != nil {
		req.Feedback.toPatch().Apply(&e.Feedback)
	}
	if req.Notifications != nil {
		e.Notifications = *req.Notifications
	}

	return e
}

// UpdateEventRequest replaces the sections present in the body.
type UpdateEventRequest struct {
	Title            *string                      `json:"title"`
	Description      *string                      `json:"description"`
	ShortDescription *string                      `json:"shortDescription"`
	Category         *string                      `json:"category"`
	Tags             []string                     `json:"tags"`
	Venue            *domain.Venue                `json:"venue"`
	DateTime         *domain.Schedule             `json:"dateTime"`
	Registration     *RegistrationSettings        `json:"registration"`
	Status           *string                      `json:"status"`
	Visibility       *string                      `json:"visibility"`
	TargetAudience   []string                     `json:"targetAudience"`
	Images           []domain.Image               `json:"images"`
	Attachments      []domain.Attachment          `json:"attachments"`
	Requirements     []string                     `json:"requirements"`
	Prizes           []domain.Prize               `json:"prizes"`
	SocialMedia      *domain.SocialMedia          `json:"socialMedia"`
	Feedback         *FeedbackSettings            `json:"feedback"`
	Notifications    *domain.NotificationSettings `json:"notifications"`
	IsRecurring      *bool                        `json:"isRecurring"`
	RecurringPattern *domain.RecurringPattern     `json:"recurringPattern"`
}

func (req *UpdateEventRequest) ToPatch() domain.EventPatch {
	patch := domain.EventPatch{
		Title:            req.Title,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Tags:             req.Tags,
		Venue:            req.Venue,
		DateTime:         req.DateTime,
		TargetAudience:   req.TargetAudience,
		Images:           req.Images,
		Attachments:      req.Attachments,
		Requirements:     req.Requirements,
		Prizes:           req.Prizes,
		SocialMedia:      req.SocialMedia,
		Notifications:    req.Notifications,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: req.RecurringPattern,
	}
	if req.Category != nil {
		c := domain.Category(*req.Category)
		patch.Category = &c
	}
	if req.Registration != nil {
		r := req.Registration.toDomain()
		patch.Registration = &r
	}
	if req.Status != nil {
		s := domain.EventStatus(*req.Status)
		patch.Status = &s
	}
	if req.Visibility != nil {
		v := domain.Visibility(*req.Visibility)
		patch.Visibility = &v
	}
	if req.Feedback != nil {
		patch.Feedback = req.Feedback.toPatch()
	}

	return patch
}
