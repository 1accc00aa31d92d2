package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventSlugExists       = errors.New("slug already exists")
	ErrEventHasRegistrations = errors.New("cannot delete event with existing registrations")
	ErrEventFull             = errors.New("event is full")
)

type OrganizerInfo struct {
	Name       string `gorm:"size:100"`
	Email      string `gorm:"size:255"`
	Department string `gorm:"size:100"`
	Contact    string `gorm:"size:64"`
}

type Venue struct {
	Name      string `gorm:"size:200;not null"`
	Address   string
	Capacity  int `gorm:"not null"`
	Latitude  *float64
	Longitude *float64
}

type RegistrationField struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
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

type FeedbackQuestion struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type RecurringPattern struct {
	Frequency string     `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type Event struct {
	ID uint `gorm:"primaryKey"`

	Title            string   `gorm:"size:200;not null"`
	Description      string   `gorm:"type:text;not null"`
	ShortDescription string   `gorm:"size:500"`
	Category         string   `gorm:"size:32;not null;index"`
	Tags             []string `gorm:"serializer:json;type:text"`
	Slug             string   `gorm:"size:255;uniqueIndex:idx_events_slug;not null"`

	OrganizerID   uint          `gorm:"not null;index"`
	OrganizerInfo OrganizerInfo `gorm:"embedded;embeddedPrefix:organizer_"`
	Venue         Venue         `gorm:"embedded;embeddedPrefix:venue_"`

	StartAt              time.Time `gorm:"not null;index"`
	EndAt                time.Time `gorm:"not null"`
	RegistrationDeadline time.Time `gorm:"not null"`

	RegistrationRequired bool                `gorm:"not null"`
	MaxParticipants      int                 `gorm:"not null"`
	CurrentParticipants  int                 `gorm:"not null"`
	Fee                  float64             `gorm:"not null"`
	RegistrationFields   []RegistrationField `gorm:"serializer:json;type:text"`

	Status         string       `gorm:"size:16;not null;index"`
	Visibility     string       `gorm:"size:16;not null"`
	TargetAudience []string     `gorm:"serializer:json;type:text"`
	Images         []Image      `gorm:"serializer:json;type:text"`
	Attachments    []Attachment `gorm:"serializer:json;type:text"`
	Requirements   []string     `gorm:"serializer:json;type:text"`
	Prizes         []Prize      `gorm:"serializer:json;type:text"`
	SocialMedia    datatypes.JSONType[SocialMedia]

	Views     int64 `gorm:"not null"`
	Interests int64 `gorm:"not null"`
	Shares    int64 `gorm:"not null"`

	FeedbackEnabled   bool               `gorm:"not null"`
	FeedbackQuestions []FeedbackQuestion `gorm:"serializer:json;type:text"`

	Reminder24h         bool `gorm:"not null"`
	Reminder1h          bool `gorm:"not null"`
	UpdateNotifications bool `gorm:"not null"`

	IsRecurring      bool              `gorm:"not null"`
	RecurringPattern *RecurringPattern `gorm:"serializer:json;type:text"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type EventQuery struct {
	Status       string
	Category     string
	StartsAfter  *time.Time
	StartsFrom   *time.Time
	StartsBefore *time.Time
	Search       string
	OrderBy      string
	Desc         bool
	Offset       int
	Limit        int
}

type StatusCount struct {
	Status string
	Count  int64
}

type CategoryRollup struct {
	Category           string
	Count              int64
	TotalViews         int64
	TotalRegistrations int64
}

// columns an update must never overwrite: counters move through their own statements.
var eventImmutableColumns = []string{
	"id", "organizer_id", "organizer_name", "organizer_email", "organizer_department", "organizer_contact",
	"current_participants", "views", "interests", "shares", "created_at",
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		if _, ok := uniqueViolation(result.Error); ok {
			return Event{}, ErrEventSlugExists
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) SlugExists(ctx context.Context, slug string, exceptID uint) (bool, error) {
	var count int64

	query := d.db.WithContext(ctx).Model(&Event{}).Where("slug = ?", slug)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (d *EventDAO) List(ctx context.Context, q EventQuery) ([]Event, int64, error) {
	var total int64
	if err := d.db.WithContext(ctx).Model(&Event{}).Scopes(q.filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "start_at"
	}

	var events []Event
	result := d.db.WithContext(ctx).
		Scopes(q.filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: q.Desc}).
		Order("id").
		Offset(q.Offset).Limit(q.Limit).
		Find(&events)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return events, total, nil
}

func (q EventQuery) filter(db *gorm.DB) *gorm.DB {
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.StartsAfter != nil {
		db = db.Where("start_at >= ?", *q.StartsAfter)
	}
	if q.StartsFrom != nil {
		db = db.Where("start_at >= ?", *q.StartsFrom)
	}
	if q.StartsBefore != nil {
		db = db.Where("start_at <= ?", *q.StartsBefore)
	}
	if strings.TrimSpace(q.Search) != "" {
		pattern := likePattern(q.Search)
		db = db.Where(
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	return db
}

// Update writes every editable column of event. The organizer, the counters
// and the creation stamp are left as stored.
func (d *EventDAO) Update(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).
		Model(&Event{ID: event.ID}).
		Select("*").
		Omit(eventImmutableColumns...).
		Updates(&event)
	if result.Error != nil {
		if _, ok := uniqueViolation(result.Error); ok {
			return Event{}, ErrEventSlugExists
		}

		return Event{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Event{}, ErrEventNotFound
	}

	return d.FindByID(ctx, event.ID)
}

func (d *EventDAO) IncrementViews(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).
		Model(&Event{ID: id}).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// Delete removes the event unless a registration of any status references it.
func (d *EventDAO) Delete(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&Registration{}).Where("event_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrEventHasRegistrations
		}

		result := tx.Delete(&Event{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEventNotFound
		}

		return tx.Where("event_id = ?", id).Delete(&UserRegisteredEvent{}).Error
	})
}

func (d *EventDAO) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount

	result := d.db.WithContext(ctx).Model(&Event{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts)
	if result.Error != nil {
		return nil, result.Error
	}

	return counts, nil
}

// RollupByCategory aggregates events created since the given time, busiest
// category first.
func (d *EventDAO) RollupByCategory(ctx context.Context, since time.Time) ([]CategoryRollup, error) {
	var rollups []CategoryRollup

	result := d.db.WithContext(ctx).Model(&Event{}).
		Select("category, COUNT(*) AS count, COALESCE(SUM(views), 0) AS total_views, "+
			"COALESCE(SUM(current_participants), 0) AS total_registrations").
		Where("created_at >= ?", since).
		Group("category").
		Order("count DESC").Order("category").
		Scan(&rollups)
	if result.Error != nil {
		return nil, result.Error
	}

	return rollups, nil
}
