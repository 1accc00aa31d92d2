package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository"
)

const recentUsers = 5

var (
	ErrUserNotFound = repository.ErrUserNotFound
	ErrSelfDelete   = errors.New("you cannot delete your own account")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error)
	Stats(ctx context.Context, recent int) (domain.UserStats, error)
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, domain.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("s.repo.List -> %w", err)
	}

	return users, filter.Page.Paginate(total), nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint, patch domain.AdminUserPatch) (domain.User, error) {
	if patch.IsEmpty() {
		return domain.User{}, ErrEmptyPatch
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	patch.Apply(&user)

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	return updated, nil
}

// DeleteUser removes the account id. Registrations of the user are kept.
func (s *UserService) DeleteUser(ctx context.Context, callerID, id uint) error {
	if callerID == id {
		return ErrSelfDelete
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}

	return nil
}

func (s *UserService) Stats(ctx context.Context) (domain.UserStats, error) {
	stats, err := s.repo.Stats(ctx, recentUsers)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("s.repo.Stats -> %w", err)
	}

	return stats, nil
}
