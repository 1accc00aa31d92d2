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
	ErrUserEmailExists     = dao.ErrUserEmailExists
	ErrUserStudentIDExists = dao.ErrUserStudentIDExists
	ErrUserNotFound        = dao.ErrUserNotFound
)

type UserDAO interface {
	Insert(ctx context.Context, user dao.User) (dao.User, error)
	FindByID(ctx context.Context, id uint) (dao.User, error)
	FindByEmail(ctx context.Context, email string) (dao.User, error)
	Update(ctx context.Context, user dao.User) (dao.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, q dao.UserQuery) ([]dao.User, int64, error)
	CountByRole(ctx context.Context) ([]dao.RoleCount, error)
	Recent(ctx context.Context, limit int) ([]dao.User, error)
}

type UserRepository struct {
	dao UserDAO
}

func NewUserRepository(dao UserDAO) *UserRepository {
	return &UserRepository{
		dao: dao,
	}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	found, err := r.dao.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByEmail -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	updated, err := r.dao.Update(ctx, r.domainToDao(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	if err := r.dao.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("r.dao.UpdatePassword -> %w", err)
	}

	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	if err := r.dao.TouchLastLogin(ctx, id, at.UTC()); err != nil {
		return fmt.Errorf("r.dao.TouchLastLogin -> %w", err)
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
	found, total, err := r.dao.List(ctx, dao.UserQuery{
		Role:     string(filter.Role),
		Verified: filter.Verified,
		Search:   filter.Search,
		Offset:   filter.Page.Offset(),
		Limit:    filter.Page.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.List -> %w", err)
	}

	users := make([]domain.User, 0, len(found))
	for _, u := range found {
		users = append(users, r.daoToDomain(u))
	}

	return users, total, nil
}

// Stats counts users per role and returns the most recently created ones.
func (r *UserRepository) Stats(ctx context.Context, recent int) (domain.UserStats, error) {
	counts, err := r.dao.CountByRole(ctx)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("r.dao.CountByRole -> %w", err)
	}

	latest, err := r.dao.Recent(ctx, recent)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("r.dao.Recent -> %w", err)
	}

	stats := domain.UserStats{
		Stats:       make([]domain.RoleCount, 0, len(counts)),
		RecentUsers: make([]domain.User, 0, len(latest)),
	}
	for _, c := range counts {
		stats.TotalUsers += c.Count
		stats.Stats = append(stats.Stats, domain.RoleCount{Role: domain.Role(c.Role), Count: c.Count, Verified: c.Verified})
	}
	for _, u := range latest {
		stats.RecentUsers = append(stats.RecentUsers, r.daoToDomain(u))
	}

	return stats, nil
}

func (r *UserRepository) domainToDao(u domain.User) dao.User {
	var studentID *string
	if u.StudentID != "" {
		sid := u.StudentID
		studentID = &sid
	}

	prefs := u.Preferences
	if prefs.EventCategories == nil {
		prefs.EventCategories = []string{}
	}

	return dao.User{
		ID:         u.ID,
		Name:       u.Name,
		Email:      domain.NormalizeEmail(u.Email),
		Password:   u.Password,
		Role:       string(u.Role),
		StudentID:  studentID,
		Department: u.Department,
		Year:       u.Year,
		Phone:      u.Phone,
		Avatar:     u.Avatar,
		IsVerified: u.IsVerified,
		Preferences: datatypes.NewJSONType(dao.Preferences{
			EmailNotifications: prefs.EmailNotifications,
			SMSNotifications:   prefs.SMSNotifications,
			EventCategories:    prefs.EventCategories,
		}),
		LastLogin: u.LastLogin,
	}
}

func (r *UserRepository) daoToDomain(u dao.User) domain.User {
	var studentID string
	if u.StudentID != nil {
		studentID = *u.StudentID
	}

	prefs := u.Preferences.Data()
	registered := make([]uint, 0, len(u.RegisteredEvents))
	for _, re := range u.RegisteredEvents {
		registered = append(registered, re.EventID)
	}

	return domain.User{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Password:         u.Password,
		Role:             domain.Role(u.Role),
		StudentID:        studentID,
		Department:       u.Department,
		Year:             u.Year,
		Phone:            u.Phone,
		Avatar:           u.Avatar,
		IsVerified:       u.IsVerified,
		RegisteredEvents: registered,
		Preferences: domain.Preferences{
			EmailNotifications: prefs.EmailNotifications,
			SMSNotifications:   prefs.SMSNotifications,
			EventCategories:    append([]string{}, prefs.EventCategories...),
		},
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
