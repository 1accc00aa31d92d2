package domain

import (
	"errors"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
)

type Category string

const (
	CategoryAcademic    Category = "Academic"
	CategoryCultural    Category = "Cultural"
	CategorySports      Category = "Sports"
	CategoryTechnical   Category = "Technical"
	CategorySocial      Category = "Social"
	CategoryWorkshop    Category = "Workshop"
	CategorySeminar     Category = "Seminar"
	CategoryCompetition Category = "Competition"
	CategoryFestival    Category = "Festival"
	CategoryOther       Category = "Other"
)

var Categories = []interface{}{
	CategoryAcademic, CategoryCultural, CategorySports, CategoryTechnical, CategorySocial,
	CategoryWorkshop, CategorySeminar, CategoryCompetition, CategoryFestival, CategoryOther,
}

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

var EventStatuses = []interface{}{EventDraft, EventPublished, EventCancelled, EventCompleted}

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityPrivate    Visibility = "private"
	VisibilityDepartment Visibility = "department"
)

var audiences = []interface{}{"all", "first-year", "second-year", "third-year", "fourth-year", "faculty", "staff"}

// RegistrationState is derived from the clock and the counters, never stored.
type RegistrationState string

const (
	RegistrationOpen    RegistrationState = "open"
	RegistrationClosed  RegistrationState = "closed"
	RegistrationExpired RegistrationState = "expired"
	RegistrationFull    RegistrationState = "full"
)

var (
	ErrEndBeforeStart     = errors.New("end date must be after start date")
	ErrDeadlineAfterStart = errors.New("registration deadline must be before event start")
	ErrCapacityBelowCount = errors.New("maxParticipants cannot be lower than the current number of participants")
)

type OrganizerInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	Contact    string `json:"contact,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Venue struct {
	Name     string    `json:"name"`
	Address  string    `json:"address,omitempty"`
	Capacity int       `json:"capacity"`
	Location *Location `json:"location,omitempty"`
}

type Schedule struct {
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
	RegistrationDeadline time.Time `json:"registrationDeadline"`
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldTextarea FieldType = "textarea"
)

// RegistrationField declares one extra question asked at registration time.
type RegistrationField struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

type RegistrationSettings struct {
	IsRequired          bool                `json:"isRequired"`
	MaxParticipants     int                 `json:"maxParticipants"`
	CurrentParticipants int                 `json:"currentParticipants"`
	Fee                 float64             `json:"fee"`
	Fields              []RegistrationField `json:"fields"`
}

type Image struct {
	URL       string `json:"url"`
	Caption   string `json:"caption,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type Prize struct {
	Position string  `json:"position"`
	Prize    string  `json:"prize"`
	Value    float64 `json:"value,omitempty"`
}

type SocialMedia struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

type Analytics struct {
	Views     int64 `json:"views"`
	Interests int64 `json:"interests"`
	Shares    int64 `json:"shares"`
}

type QuestionType string

const (
	QuestionRating         QuestionType = "rating"
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple-choice"
)

type FeedbackQuestion struct {
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
}

type FeedbackSettings struct {
	Enabled   bool               `json:"enabled"`
	Questions []FeedbackQuestion `json:"questions"`
}

// FeedbackPatch leaves Enabled and Questions untouched when they are nil.
type FeedbackPatch struct {
	Enabled   *bool
	Questions []FeedbackQuestion
}

func (p FeedbackPatch) Apply(f *FeedbackSettings) {
	if p.Enabled != nil {
		f.Enabled = *p.Enabled
	}
	if p.Questions != nil {
		f.Questions = p.Questions
	}
}

type NotificationSettings struct {
	Reminder24h         bool `json:"reminder24h"`
	Reminder1h          bool `json:"reminder1h"`
	UpdateNotifications bool `json:"updateNotifications"`
}

type RecurringPattern struct {
	Frequency string     `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type Event struct {
	ID               uint                 `json:"id"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	ShortDescription string               `json:"shortDescription,omitempty"`
	Category         Category             `json:"category"`
	Tags             []string             `json:"tags"`
	Slug             string               `json:"slug"`
	OrganizerID      uint                 `json:"organizer"`
	OrganizerInfo    OrganizerInfo        `json:"organizerInfo"`
	Venue            Venue                `json:"venue"`
	DateTime         Schedule             `json:"dateTime"`
	Registration     RegistrationSettings `json:"registration"`
	Status           EventStatus          `json:"status"`
	Visibility       Visibility           `json:"visibility"`
	TargetAudience   []string             `json:"targetAudience"`
	Images           []Image              `json:"images"`
	Attachments      []Attachment         `json:"attachments"`
	Requirements     []string             `json:"requirements"`
	Prizes           []Prize              `json:"prizes"`
	SocialMedia      SocialMedia          `json:"socialMedia"`
	Analytics        Analytics            `json:"analytics"`
	Feedback         FeedbackSettings     `json:"feedback"`
	Notifications    NotificationSettings `json:"notifications"`
	IsRecurring      bool                 `json:"isRecurring"`
	RecurringPattern *RecurringPattern    `json:"recurringPattern,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// NewEvent returns an event carrying the defaults a freshly created record gets.
func NewEvent() Event {
	return Event{
		Status:        EventPublished,
		Visibility:    VisibilityPublic,
		Registration:  RegistrationSettings{IsRequired: true},
		Feedback:      FeedbackSettings{Enabled: true},
		Notifications: NotificationSettings{Reminder24h: true, Reminder1h: true, UpdateNotifications: true},
	}
}

// RegistrationStatus is closed once the event started, expired once the
// deadline passed, full when the cap is reached and open otherwise.
func (e Event) RegistrationStatus(now time.Time) RegistrationState {
	switch {
	case now.After(e.DateTime.Start):
		return RegistrationClosed
	case now.After(e.DateTime.RegistrationDeadline):
		return RegistrationExpired
	case e.IsFull():
		return RegistrationFull
	default:
		return RegistrationOpen
	}
}

func (e Event) IsAvailable(now time.Time) bool {
	return e.RegistrationStatus(now) == RegistrationOpen
}

func (e Event) IsFull() bool {
	return e.Registration.MaxParticipants > 0 &&
		e.Registration.CurrentParticipants >= e.Registration.MaxParticipants
}

func (e Event) Duration() time.Duration {
	return e.DateTime.End.Sub(e.DateTime.Start)
}

func (e Event) IsOrganizedBy(userID uint) bool {
	return e.OrganizerID != 0 && e.OrganizerID == userID
}

// CanBeManagedBy reports whether u may update or delete the event.
func (e Event) CanBeManagedBy(u User) bool {
	return u.IsAdmin() || e.IsOrganizedBy(u.ID)
}

// Validate checks the record rules and the date invariants, returning only the
// first failure.
func (e Event) Validate() error {
	err := firstViolation(
		field("title", e.Title, validation.Required, validation.Length(1, 200)),
		field("description", e.Description, validation.Required, validation.Length(1, 2000)),
		field("shortDescription", e.ShortDescription, validation.Length(0, 500)),
		field("category", e.Category, validation.Required, validation.In(Categories...)),
		field("venue.name", e.Venue.Name, validation.Required),
		field("venue.capacity", e.Venue.Capacity, validation.Required, validation.Min(1)),
		field("dateTime.start", e.DateTime.Start, validation.Required),
		field("dateTime.end", e.DateTime.End, validation.Required),
		field("dateTime.registrationDeadline", e.DateTime.RegistrationDeadline, validation.Required),
		field("registration.maxParticipants", e.Registration.MaxParticipants, validation.Min(0)),
		field("registration.fee", e.Registration.Fee, validation.Min(0.0)),
		field("status", e.Status, validation.Required, validation.In(EventStatuses...)),
		field("visibility", e.Visibility, validation.Required,
			validation.In(VisibilityPublic, VisibilityPrivate, VisibilityDepartment)),
	)
	if err != nil {
		return err
	}

	for _, a := range e.TargetAudience {
		if err := validation.Validate(a, validation.In(audiences...)); err != nil {
			return invalid("targetAudience", err)
		}
	}

	for _, f := range e.Registration.Fields {
		err := firstViolation(
			field("registration.fields.name", f.Name, validation.Required),
			field("registration.fields.type", f.Type, validation.Required,
				validation.In(FieldText, FieldEmail, FieldNumber, FieldSelect, FieldCheckbox, FieldTextarea)),
		)
		if err != nil {
			return err
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return invalid("registration.fields.options", errors.New("select fields need options"))
		}
	}

	for _, q := range e.Feedback.Questions {
		err := field("feedback.questions.type", q.Type,
			validation.In(QuestionRating, QuestionText, QuestionMultipleChoice)).validate()
		if err != nil {
			return err
		}
	}

	if e.IsRecurring && e.RecurringPattern != nil {
		err := field("recurringPattern.frequency", e.RecurringPattern.Frequency,
			validation.Required, validation.In("daily", "weekly", "monthly", "yearly")).validate()
		if err != nil {
			return err
		}
	}

	if !e.DateTime.End.After(e.DateTime.Start) {
		return invalid("dateTime.end", ErrEndBeforeStart)
	}
	if e.DateTime.RegistrationDeadline.After(e.DateTime.Start) {
		return invalid("dateTime.registrationDeadline", ErrDeadlineAfterStart)
	}
	if e.Registration.MaxParticipants > 0 && e.Registration.CurrentParticipants > e.Registration.MaxParticipants {
		return invalid("registration.maxParticipants", ErrCapacityBelowCount)
	}

	return nil
}

// EventPatch carries the sections of an event an update replaces. Nil
// sections keep their stored value. The organizer, the participant counter
// and the analytics counters are never patched.
type EventPatch struct {
	Title            *string
	Description      *string
	ShortDescription *string
	Category         *Category
	Tags             []string
	Venue            *Venue
	DateTime         *Schedule
	Registration     *RegistrationSettings
	Status           *EventStatus
	Visibility       *Visibility
	TargetAudience   []string
	Images           []Image
	Attachments      []Attachment
	Requirements     []string
	Prizes           []Prize
	SocialMedia      *SocialMedia
	Feedback         *FeedbackPatch
	Notifications    *NotificationSettings
	IsRecurring      *bool
	RecurringPattern *RecurringPattern
}

func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.ShortDescription != nil {
		e.ShortDescription = *p.ShortDescription
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Tags != nil {
		e.Tags = p.Tags
	}
	if p.Venue != nil {
		e.Venue = *p.Venue
	}
	if p.DateTime != nil {
		e.DateTime = *p.DateTime
	}
	if p.Registration != nil {
		current := e.Registration.CurrentParticipants
		e.Registration = *p.Registration
		e.Registration.CurrentParticipants = current
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Visibility != nil {
		e.Visibility = *p.Visibility
	}
	if p.TargetAudience != nil {
		e.TargetAudience = p.TargetAudience
	}
	if p.Images != nil {
		e.Images = p.Images
	}
	if p.Attachments != nil {
		e.Attachments = p.Attachments
	}
	if p.Requirements != nil {
		e.Requirements = p.Requirements
	}
	if p.Prizes != nil {
		e.Prizes = p.Prizes
	}
	if p.SocialMedia != nil {
		e.SocialMedia = *p.SocialMedia
	}
	if p.Feedback != nil {
		p.Feedback.Apply(&e.Feedback)
	}
	if p.Notifications != nil {
		e.Notifications = *p.Notifications
	}
	if p.IsRecurring != nil {
		e.IsRecurring = *p.IsRecurring
	}
	if p.RecurringPattern != nil {
		e.RecurringPattern = p.RecurringPattern
	}
}

// Summary is the slice of the event embedded in registration payloads.
func (e Event) Summary() EventSummary {
	return EventSummary{
		ID:       e.ID,
		Title:    e.Title,
		Category: e.Category,
		Status:   e.Status,
		DateTime: e.DateTime,
		Venue:    e.Venue.Name,
	}
}

// Slugify lowercases title, drops anything outside [a-z0-9], and joins the
// remaining words with single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(title) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if gap && b.Len() > 0 {
				b.WriteByte('-')
			}
			gap = false
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			gap = true
		}
	}
	return b.String()
}

type EventFilter struct {
	Status   EventStatus
	Category Category
	Upcoming bool
	Search   string
	From     *time.Time
	To       *time.Time
	SortBy   string
	Desc     bool
	Page     Page
}

// EventSortColumns maps the public sort keys to stored columns.
var EventSortColumns = map[string]string{
	"dateTime.start":                   "start_at",
	"dateTime.registrationDeadline":    "registration_deadline",
	"createdAt":                        "created_at",
	"title":                            "title",
	"analytics.views":                  "views",
	"registration.currentParticipants": "current_participants",
}

type StatusOverview struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Draft     int64 `json:"draft"`
	Cancelled int64 `json:"cancelled"`
	Completed int64 `json:"completed"`
}

type CategoryRollup struct {
	Category           Category `json:"category"`
	Count              int64    `json:"count"`
	TotalViews         int64    `json:"totalViews"`
	TotalRegistrations int64    `json:"totalRegistrations"`
}

type EventAnalytics struct {
	Overview  StatusOverview   `json:"overview"`
	Analytics []CategoryRollup `json:"analytics"`
	Timeframe string           `json:"timeframe"`
}
