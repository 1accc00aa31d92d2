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
	ErrUserEmailExists     = errors.New("email already exists")
	ErrUserStudentIDExists = errors.New("studentId already exists")
	ErrUserNotFound        = errors.New("user not found")
)

type Preferences struct {
	EmailNotifications bool     `json:"emailNotifications"`
	SMSNotifications   bool     `json:"smsNotifications"`
	EventCategories    []string `json:"eventCategories"`
}

type User struct {
	ID uint `gorm:"primaryKey"`

	Name     string `gorm:"size:50;not null"`
	Email    string `gorm:"size:255;uniqueIndex:idx_users_email;not null"`
	Password string `gorm:"not null"`
	Role     string `gorm:"size:20;not null;index"`

	// NULL rather than "" so the unique index only applies to students that have one.
	StudentID  *string `gorm:"size:64;uniqueIndex:idx_users_student_id"`
	Department string  `gorm:"size:100"`
	Year       int
	Phone      string `gorm:"size:32"`
	Avatar     string

	IsVerified  bool `gorm:"not null"`
	Preferences datatypes.JSONType[Preferences]
	LastLogin   *time.Time

	RegisteredEvents []UserRegisteredEvent `gorm:"foreignKey:UserID"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// UserRegisteredEvent backs a user's list of events they hold a live
// registration for.
type UserRegisteredEvent struct {
	UserID    uint `gorm:"primaryKey"`
	EventID   uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

type UserQuery struct {
	Role     string
	Verified *bool
	Search   string
	Offset   int
	Limit    int
}

type RoleCount struct {
	Role     string
	Count    int64
	Verified int64
}

var userUpdatableColumns = []string{
	"name", "email", "role", "student_id", "department", "year", "phone", "avatar", "is_verified", "preferences", "updated_at",
}

type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{
		db: db,
	}
}

func (d *UserDAO) Insert(ctx context.Context, user User) (User, error) {
	result := d.db.WithContext(ctx).Omit(clause.Associations).Create(&user)
	if result.Error != nil {
		return User{}, userWriteErr(result.Error)
	}

	return user, nil
}

func (d *UserDAO) FindByID(ctx context.Context, id uint) (User, error) {
	var user User

	result := d.db.WithContext(ctx).Preload("RegisteredEvents").First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

func (d *UserDAO) FindByEmail(ctx context.Context, email string) (User, error) {
	var user User

	result := d.db.WithContext(ctx).Preload("RegisteredEvents").First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

// Update overwrites the profile columns of user. Password and login stamps
// have their own methods.
func (d *UserDAO) Update(ctx context.Context, user User) (User, error) {
	result := d.db.WithContext(ctx).
		Model(&User{ID: user.ID}).
		Select(userUpdatableColumns).
		Updates(&user)
	if result.Error != nil {
		return User{}, userWriteErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return User{}, ErrUserNotFound
	}

	return d.FindByID(ctx, user.ID)
}

func (d *UserDAO) UpdatePassword(ctx context.Context, id uint, hash string) error {
	result := d.db.WithContext(ctx).Model(&User{ID: id}).Update("password", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (d *UserDAO) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return d.db.WithContext(ctx).Model(&User{ID: id}).UpdateColumn("last_login", at).Error
}

// Delete removes the user and their registered-event list. Registrations are
// left untouched.
func (d *UserDAO) Delete(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&UserRegisteredEvent{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}

func (d *UserDAO) List(ctx context.Context, q UserQuery) ([]User, int64, error) {
	var total int64
	if err := d.db.WithContext(ctx).Model(&User{}).Scopes(q.filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []User
	result := d.db.WithContext(ctx).
		Scopes(q.filter).
		Preload("RegisteredEvents").
		Order("created_at DESC").Order("id DESC").
		Offset(q.Offset).Limit(q.Limit).
		Find(&users)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return users, total, nil
}

func (q UserQuery) filter(db *gorm.DB) *gorm.DB {
	if q.Role != "" {
		db = db.Where("role = ?", q.Role)
	}
	if q.Verified != nil {
		db = db.Where("is_verified = ?", *q.Verified)
	}
	if strings.TrimSpace(q.Search) != "" {
		pattern := likePattern(q.Search)
		db = db.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(student_id) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	return db
}

func (d *UserDAO) CountByRole(ctx context.Context) ([]RoleCount, error) {
	var counts []RoleCount

	result := d.db.WithContext(ctx).Model(&User{}).
		Select("role, COUNT(*) AS count, SUM(CASE WHEN is_verified THEN 1 ELSE 0 END) AS verified").
		Group("role").
		Order("role").
		Scan(&counts)
	if result.Error != nil {
		return nil, result.Error
	}

	return counts, nil
}

func (d *UserDAO) Recent(ctx context.Context, limit int) ([]User, error) {
	var users []User

	result := d.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

func userWriteErr(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	if strings.Contains(constraint, "student_id") {
		return ErrUserStudentIDExists
	}

	return ErrUserEmailExists
}
