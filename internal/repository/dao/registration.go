package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("you are already registered for this event")
	ErrRegistrationChanged  = errors.New("registration was modified concurrently")
)

type PaymentDetails struct {
	TransactionID string `gorm:"size:128"`
	Amount        float64
	Method        string `gorm:"size:32"`
	PaidAt        *time.Time
}

type Attendance struct {
	CheckedIn    bool `gorm:"not null"`
	CheckInTime  *time.Time
	CheckedOut   bool `gorm:"not null"`
	CheckOutTime *time.Time
	Notes        string `gorm:"type:text"`
}

type Feedback struct {
	Rating      *int
	Comments    string `gorm:"type:text"`
	Responses   datatypes.JSONMap
	SubmittedAt *time.Time
}

type NotificationFlags struct {
	ReminderSent24h  bool `json:"reminderSent24h"`
	ReminderSent1h   bool `json:"reminderSent1h"`
	ConfirmationSent bool `json:"confirmationSent"`
	CancellationSent bool `json:"cancellationSent"`
}

type RequestMetadata struct {
	Source             string `gorm:"size:16"`
	IPAddress          string `gorm:"size:64"`
	UserAgent          string
	Referrer           string
	CancellationReason string
	CancelledAt        *time.Time
}

type Certificate struct {
	Issued   bool `gorm:"not null"`
	IssuedAt *time.Time
	URL      string
}

type Registration struct {
	ID uint `gorm:"primaryKey"`

	UserID  uint `gorm:"not null;uniqueIndex:idx_registrations_user_event,priority:1"`
	EventID uint `gorm:"not null;uniqueIndex:idx_registrations_user_event,priority:2;index"`
	User    User
	Event   Event

	Answers       datatypes.JSONMap
	Status        string `gorm:"size:16;not null;index"`
	PaymentStatus string `gorm:"size:16;not null"`

	Payment       PaymentDetails  `gorm:"embedded;embeddedPrefix:payment_"`
	Attendance    Attendance      `gorm:"embedded;embeddedPrefix:attendance_"`
	Feedback      Feedback        `gorm:"embedded;embeddedPrefix:feedback_"`
	Metadata      RequestMetadata `gorm:"embedded;embeddedPrefix:meta_"`
	Certificate   Certificate     `gorm:"embedded;embeddedPrefix:certificate_"`
	Notifications datatypes.JSONType[NotificationFlags]

	Code string `gorm:"size:64;uniqueIndex:idx_registrations_code;not null"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type RegistrationQuery struct {
	UserID        uint
	EventID       uint
	Status        string
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
	Offset        int
	Limit         int
}

type RegistrationStatusCount struct {
	Status   string
	Count    int64
	TotalFee float64
}

type RegistrationDAO struct {
	db *gorm.DB
}

func NewRegistrationDAO(db *gorm.DB) *RegistrationDAO {
	return &RegistrationDAO{
		db: db,
	}
}

// Insert stores reg and, when it holds a seat, claims that seat on the event
// in the same transaction. A full event rolls the whole insert back.
func (d *RegistrationDAO) Insert(ctx context.Context, reg Registration, holdsSeat bool) (Registration, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&reg).Error; err != nil {
			if _, ok := uniqueViolation(err); ok {
				return ErrAlreadyRegistered
			}
			return err
		}

		if holdsSeat {
			if err := claimSeat(tx, reg.EventID); err != nil {
				return err
			}
		}

		return linkUserEvent(tx, reg.UserID, reg.EventID)
	})
	if err != nil {
		return Registration{}, err
	}

	return reg, nil
}

// Transition persists a change to reg whose stored status was prevStatus.
// seatDelta is +1 when the new status starts holding a seat, -1 when it stops,
// 0 otherwise; the counter moves in the same transaction.
func (d *RegistrationDAO) Transition(ctx context.Context, reg Registration, prevStatus string, seatDelta int) (Registration, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Registration{}).
			Where("id = ? AND status = ?", reg.ID, prevStatus).
			Select("*").
			Omit("id", "user_id", "event_id", "code", "created_at", clause.Associations).
			Updates(&reg)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRegistrationChanged
		}

		switch {
		case seatDelta > 0:
			if err := claimSeat(tx, reg.EventID); err != nil {
				return err
			}
		case seatDelta < 0:
			if err := releaseSeat(tx, reg.EventID); err != nil {
				return err
			}
		}

		if reg.Status == "cancelled" {
			return unlinkUserEvent(tx, reg.UserID, reg.EventID)
		}
		return linkUserEvent(tx, reg.UserID, reg.EventID)
	})
	if err != nil {
		return Registration{}, err
	}

	return d.FindByID(ctx, reg.ID)
}

// BulkSetStatus overrides the status of every listed registration and then
// recomputes the counters of the touched events from scratch, all in one
// transaction. It returns the number of registrations changed.
func (d *RegistrationDAO) BulkSetStatus(ctx context.Context, ids []uint, status string, seatStatuses []string) (int64, error) {
	var changed int64

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var regs []Registration
		if err := tx.Select("id", "user_id", "event_id").Where("id IN ?", ids).Find(&regs).Error; err != nil {
			return err
		}
		if len(regs) == 0 {
			return nil
		}

		result := tx.Model(&Registration{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return result.Error
		}
		changed = result.RowsAffected

		eventIDs := make([]uint, 0, len(regs))
		seen := make(map[uint]bool, len(regs))
		for _, r := range regs {
			var err error
			if status == "cancelled" {
				err = unlinkUserEvent(tx, r.UserID, r.EventID)
			} else {
				err = linkUserEvent(tx, r.UserID, r.EventID)
			}
			if err != nil {
				return err
			}

			if !seen[r.EventID] {
				seen[r.EventID] = true
				eventIDs = append(eventIDs, r.EventID)
			}
		}

		return recount(tx.Where("id IN ?", eventIDs), seatStatuses).Error
	})
	if err != nil {
		return 0, err
	}

	return changed, nil
}

// Reconcile recomputes every event's participant counter from its
// registrations and returns how many counters had drifted.
func (d *RegistrationDAO) Reconcile(ctx context.Context, seatStatuses []string) (int64, error) {
	var drifted int64

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := recount(tx.Where("current_participants <> (?)", seatCount(tx, seatStatuses)), seatStatuses)
		drifted = result.RowsAffected
		return result.Error
	})

	return drifted, err
}

func (d *RegistrationDAO) FindByID(ctx context.Context, id uint) (Registration, error) {
	var reg Registration

	result := d.db.WithContext(ctx).Preload("User").Preload("Event").First(&reg, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return reg, nil
}

func (d *RegistrationDAO) FindByUserAndEvent(ctx context.Context, userID, eventID uint) (Registration, error) {
	var reg Registration

	result := d.db.WithContext(ctx).Where("user_id = ? AND event_id = ?", userID, eventID).First(&reg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return reg, nil
}

func (d *RegistrationDAO) List(ctx context.Context, q RegistrationQuery) ([]Registration, int64, error) {
	var total int64
	if err := d.db.WithContext(ctx).Model(&Registration{}).Scopes(q.filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var regs []Registration
	result := d.db.WithContext(ctx).
		Scopes(q.filter).
		Preload("User").Preload("Event").
		Order("created_at DESC").Order("id DESC").
		Offset(q.Offset).Limit(q.Limit).
		Find(&regs)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return regs, total, nil
}

func (q RegistrationQuery) filter(db *gorm.DB) *gorm.DB {
	if q.UserID != 0 {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.EventID != 0 {
		db = db.Where("event_id = ?", q.EventID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.CreatedFrom != nil {
		db = db.Where("created_at >= ?", *q.CreatedFrom)
	}
	if q.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *q.CreatedBefore)
	}
	return db
}

// CountByStatus groups registrations, optionally of one event, by status with
// the fees they carry.
func (d *RegistrationDAO) CountByStatus(ctx context.Context, eventID uint) ([]RegistrationStatusCount, error) {
	var counts []RegistrationStatusCount

	query := d.db.WithContext(ctx).Model(&Registration{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(payment_amount), 0) AS total_fee")
	if eventID != 0 {
		query = query.Where("event_id = ?", eventID)
	}

	result := query.Group("status").Order("status").Scan(&counts)
	if result.Error != nil {
		return nil, result.Error
	}

	return counts, nil
}

func claimSeat(tx *gorm.DB, eventID uint) error {
	result := tx.Model(&Event{}).
		Where("id = ? AND (max_participants = 0 OR current_participants < max_participants)", eventID).
		UpdateColumn("current_participants", gorm.Expr("current_participants + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventFull
	}

	return nil
}

func releaseSeat(tx *gorm.DB, eventID uint) error {
	return tx.Model(&Event{}).
		Where("id = ? AND current_participants > 0", eventID).
		UpdateColumn("current_participants", gorm.Expr("current_participants - 1")).Error
}

func seatCount(tx *gorm.DB, seatStatuses []string) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&Registration{}).
		Select("COUNT(*)").
		Where("registrations.event_id = events.id AND registrations.status IN ?", seatStatuses)
}

func recount(scoped *gorm.DB, seatStatuses []string) *gorm.DB {
	return scoped.Model(&Event{}).
		UpdateColumn("current_participants", gorm.Expr("(?)", seatCount(scoped, seatStatuses)))
}

func linkUserEvent(tx *gorm.DB, userID, eventID uint) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRegisteredEvent{UserID: userID, EventID: eventID}).Error
}

func unlinkUserEvent(tx *gorm.DB, userID, eventID uint) error {
	return tx.Where("user_id = ? AND event_id = ?", userID, eventID).
		Delete(&UserRegisteredEvent{}).Error
}
