package response

import (
	"time"

	"github.com/campus-portal/event-portal-api/internal/domain"
)

type LoginResponse struct {
	Token string         `json:"token"`
	User  domain.Profile `json:"user"`
}

type ProfileResponse struct {
	User domain.Profile `json:"user"`
}

type UserResponse struct {
	User domain.Profile `json:"user"`
}

type UserList struct {
	Users      []domain.Profile  `json:"users"`
	Pagination domain.Pagination `json:"pagination"`
}

// UserStats mirrors domain.UserStats without exposing stored hashes.
type UserStats struct {
	TotalUsers  int64              `json:"totalUsers"`
	Stats       []domain.RoleCount `json:"stats"`
	RecentUsers []domain.Profile   `json:"recentUsers"`
}

func NewUserStats(s domain.UserStats) UserStats {
	return UserStats{
		TotalUsers:  s.TotalUsers,
		Stats:       s.Stats,
		RecentUsers: Profiles(s.RecentUsers),
	}
}

func Profiles(users []domain.User) []domain.Profile {
	out := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out
}

// Event adds the derived registration state to the stored event.
type Event struct {
	domain.Event
	RegistrationStatus domain.RegistrationState `json:"registrationStatus"`
	IsAvailable        bool                     `json:"isAvailable"`
}

type EventResponse struct {
	Event Event `json:"event"`
}

type EventDetail struct {
	Event        Event                       `json:"event"`
	IsRegistered bool                        `json:"isRegistered"`
	Registration *domain.RegistrationSummary `json:"registration"`
}

type EventList struct {
	Events     []Event            `json:"events"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
	Count      *int               `json:"count,omitempty"`
}

type RegistrationResponse struct {
	Registration domain.Registration `json:"registration"`
}

type RegistrationList struct {
	Registrations []domain.Registration     `json:"registrations"`
	Pagination    domain.Pagination         `json:"pagination"`
	Stats         *domain.RegistrationStats `json:"stats,omitempty"`
}

type BulkUpdate struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

type Health struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Database  string    `json:"database,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
