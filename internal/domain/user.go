package domain

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

const MinPasswordLength = 6

var (
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	ErrEmptyPatch   = errors.New("no valid updates provided")
)

type Preferences struct {
	EmailNotifications bool     `json:"emailNotifications"`
	SMSNotifications   bool     `json:"smsNotifications"`
	EventCategories    []string `json:"eventCategories"`
}

func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, EventCategories: []string{}}
}

type User struct {
	ID               uint        `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Password         string      `json:"-"`
	Role             Role        `json:"role"`
	StudentID        string      `json:"studentId,omitempty"`
	Department       string      `json:"department,omitempty"`
	Year             int         `json:"year,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	Avatar           string      `json:"avatar"`
	IsVerified       bool        `json:"isVerified"`
	RegisteredEvents []uint      `json:"registeredEvents"`
	Preferences      Preferences `json:"preferences"`
	LastLogin        *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile is the user as shown to its owner: never carries the password hash.
type Profile struct {
	ID                    uint        `json:"id"`
	Name                  string      `json:"name"`
	Email                 string      `json:"email"`
	Role                  Role        `json:"role"`
	StudentID             string      `json:"studentId,omitempty"`
	Department            string      `json:"department,omitempty"`
	Year                  int         `json:"year,omitempty"`
	Phone                 string      `json:"phone,omitempty"`
	Avatar                string      `json:"avatar"`
	IsVerified            bool        `json:"isVerified"`
	RegisteredEventsCount int         `json:"registeredEventsCount"`
	Preferences           Preferences `json:"preferences"`
	LastLogin             *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt             time.Time   `json:"createdAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:                    u.ID,
		Name:                  u.Name,
		Email:                 u.Email,
		Role:                  u.Role,
		StudentID:             u.StudentID,
		Department:            u.Department,
		Year:                  u.Year,
		Phone:                 u.Phone,
		Avatar:                u.Avatar,
		IsVerified:            u.IsVerified,
		RegisteredEventsCount: len(u.RegisteredEvents),
		Preferences:           u.Preferences,
		LastLogin:             u.LastLogin,
		CreatedAt:             u.CreatedAt,
	}
}

// UserSummary is the slice of a user embedded in registration listings.
type UserSummary struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	StudentID  string `json:"studentId,omitempty"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		StudentID:  u.StudentID,
		Department: u.Department,
		Phone:      u.Phone,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// ProfilePatch lists the fields a user may change on their own account.
type ProfilePatch struct {
	Name        *string
	Phone       *string
	Department  *string
	Year        *int
	Avatar      *string
	Preferences *Preferences
}

func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Department == nil &&
		p.Year == nil && p.Avatar == nil && p.Preferences == nil
}

func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Department != nil {
		u.Department = strings.TrimSpace(*p.Department)
	}
	if p.Year != nil {
		u.Year = *p.Year
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Preferences != nil {
		u.Preferences = *p.Preferences
	}
}

// AdminUserPatch is what an administrator may change on any account.
type AdminUserPatch struct {
	ProfilePatch
	Email      *string
	Role       *Role
	IsVerified *bool
}

func (p AdminUserPatch) IsEmpty() bool {
	return p.ProfilePatch.IsEmpty() && p.Email == nil && p.Role == nil && p.IsVerified == nil
}

func (p AdminUserPatch) Apply(u *User) {
	p.ProfilePatch.Apply(u)
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
}

type UserFilter struct {
	Role     Role
	Verified *bool
	Search   string
	Page     Page
}

type RoleCount struct {
	Role     Role  `json:"role"`
	Count    int64 `json:"count"`
	Verified int64 `json:"verified"`
}

type UserStats struct {
	TotalUsers  int64       `json:"totalUsers"`
	Stats       []RoleCount `json:"stats"`
	RecentUsers []User      `json:"recentUsers"`
}
