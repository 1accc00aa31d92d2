package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository"
)

var (
	ErrUserEmailExists      = repository.ErrUserEmailExists
	ErrUserStudentIDExists  = repository.ErrUserStudentIDExists
	ErrWrongPassword        = errors.New("invalid credentials")
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	ErrWeakPassword         = domain.ErrWeakPassword
	ErrEmptyPatch           = domain.ErrEmptyPatch
)

type AuthUserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

type AuthService struct {
	repo AuthUserRepository
	cost int
	now  func() time.Time
}

func NewAuthService(repo AuthUserRepository) *AuthService {
	return &AuthService{
		repo: repo,
		cost: bcrypt.DefaultCost,
		now:  time.Now,
	}
}

// Signup creates the account described by user, whose Password field carries
// the plain text secret. The returned user holds the hash only.
func (s *AuthService) Signup(ctx context.Context, user domain.User) (domain.User, error) {
	if err := domain.ValidatePassword(user.Password); err != nil {
		return domain.User{}, err
	}

	user.Name = strings.TrimSpace(user.Name)
	user.Email = domain.NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = domain.RoleStudent
	}
	if user.Preferences.EventCategories == nil {
		user.Preferences = domain.DefaultPreferences()
	}

	if err := s.checkEmailExists(ctx, user.Email); err != nil {
		return domain.User{}, err
	}

	hash, err := hashPassword(user.Password, s.cost)
	if err != nil {
		return domain.User{}, err
	}
	user.Password = hash

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

// Login checks the credentials and stamps the login time. An unknown email
// costs the same bcrypt comparison as a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
			return domain.User{}, ErrWrongPassword
		}

		return domain.User{}, fmt.Errorf("s.repo.FindByEmail -> %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.User{}, ErrWrongPassword
	}

	now := s.now().UTC()
	if err = s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return domain.User{}, fmt.Errorf("s.repo.TouchLastLogin -> %w", err)
	}
	user.LastLogin = &now

	return user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, patch domain.ProfilePatch) (domain.User, error) {
	if patch.IsEmpty() {
		return domain.User{}, ErrEmptyPatch
	}

	user, err := s.repo.FindByID(ctx, userID)
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

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrWrongCurrentPassword
	}

	if err = domain.ValidatePassword(next); err != nil {
		return err
	}

	hash, err := hashPassword(next, s.cost)
	if err != nil {
		return err
	}

	if err = s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("s.repo.UpdatePassword -> %w", err)
	}

	return nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func (s *AuthService) dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return dummy
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) checkEmailExists(ctx context.Context, email string) error {
	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return ErrUserEmailExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("s.repo.FindByEmail -> %w", err)
	}
	return nil
}
