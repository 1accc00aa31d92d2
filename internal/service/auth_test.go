package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository"
)

func newTestAuthService(repo *mockUserRepo, now time.Time) *AuthService {
	svc := NewAuthService(repo)
	svc.cost = bcrypt.MinCost
	svc.now = fixedClock(now)
	return svc
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthService_Signup(t *testing.T) {
	t.Run("hashes the password and defaults the role", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByEmail", testCtx, "a@x.com").Return(domain.User{}, repository.ErrUserNotFound)
		repo.On("Create", testCtx, mock.MatchedBy(func(u domain.User) bool {
			return u.Email == "a@x.com" && u.Role == domain.RoleStudent &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret1")) == nil
		})).Return(domain.User{ID: 1, Email: "a@x.com", Role: domain.RoleStudent}, nil)

		created, err := newTestAuthService(repo, time.Now()).Signup(testCtx, domain.User{
			Name:     "  Ada ",
			Email:    "  A@X.com ",
			Password: "secret1",
		})
		require.NoError(t, err)
		assert.Equal(t, uint(1), created.ID)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByEmail", testCtx, "a@x.com").Return(domain.User{ID: 1}, nil)

		_, err := newTestAuthService(repo, time.Now()).Signup(testCtx, domain.User{Email: "A@x.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrUserEmailExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate student id surfaces from the store", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByEmail", testCtx, "b@x.com").Return(domain.User{}, repository.ErrUserNotFound)
		repo.On("Create", testCtx, mock.Anything).Return(domain.User{}, repository.ErrUserStudentIDExists)

		_, err := newTestAuthService(repo, time.Now()).Signup(testCtx, domain.User{
			Email: "b@x.com", Password: "secret1", StudentID: "S1",
		})
		assert.ErrorIs(t, err, ErrUserStudentIDExists)
	})

	t.Run("weak password", func(t *testing.T) {
		repo := &mockUserRepo{}
		_, err := newTestAuthService(repo, time.Now()).Signup(testCtx, domain.User{Email: "c@x.com", Password: "12345"})
		assert.ErrorIs(t, err, ErrWeakPassword)
		repo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Login(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	hash := mustHash(t, "secret1")

	t.Run("success stamps last login", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByEmail", testCtx, "a@x.com").Return(domain.User{ID: 7, Password: hash}, nil)
		repo.On("TouchLastLogin", testCtx, uint(7), now).Return(nil)

		user, err := newTestAuthService(repo, now).Login(testCtx, "a@x.com", "secret1")
		require.NoError(t, err)
		require.NotNil(t, user.LastLogin)
		assert.Equal(t, now, *user.LastLogin)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByEmail", testCtx, "a@x.com").Return(domain.User{ID: 7, Password: hash}, nil)

		_, err := newTestAuthService(repo, now).Login(testCtx, "a@x.com", "nope-nope")
		assert.ErrorIs(t, err, ErrWrongPassword)
		repo.AssertNotCalled(t, "TouchLastLogin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown email looks like a wrong password", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByEmail", testCtx, "ghost@x.com").Return(domain.User{}, repository.ErrUserNotFound)

		_, err := newTestAuthService(repo, now).Login(testCtx, "ghost@x.com", "secret1")
		assert.ErrorIs(t, err, ErrWrongPassword)
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	t.Run("empty patch", func(t *testing.T) {
		repo := &mockUserRepo{}
		_, err := newTestAuthService(repo, time.Now()).UpdateProfile(testCtx, 1, domain.ProfilePatch{})
		assert.ErrorIs(t, err, ErrEmptyPatch)
	})

	t.Run("applies allow-listed fields", func(t *testing.T) {
		repo := &mockUserRepo{}
		name := "New Name"
		repo.On("FindByID", testCtx, uint(1)).Return(domain.User{ID: 1, Name: "Old", Role: domain.RoleStudent}, nil)
		repo.On("Update", testCtx, mock.MatchedBy(func(u domain.User) bool {
			return u.Name == "New Name" && u.Role == domain.RoleStudent
		})).Return(domain.User{ID: 1, Name: "New Name"}, nil)

		updated, err := newTestAuthService(repo, time.Now()).UpdateProfile(testCtx, 1, domain.ProfilePatch{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.Name)
		repo.AssertExpectations(t)
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	hash := mustHash(t, "secret1")

	t.Run("wrong current password", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByID", testCtx, uint(1)).Return(domain.User{ID: 1, Password: hash}, nil)

		err := newTestAuthService(repo, time.Now()).ChangePassword(testCtx, 1, "wrong1", "another1")
		assert.ErrorIs(t, err, ErrWrongCurrentPassword)
	})

	t.Run("weak new password", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByID", testCtx, uint(1)).Return(domain.User{ID: 1, Password: hash}, nil)

		err := newTestAuthService(repo, time.Now()).ChangePassword(testCtx, 1, "secret1", "short")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("stores the new hash", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("FindByID", testCtx, uint(1)).Return(domain.User{ID: 1, Password: hash}, nil)
		repo.On("UpdatePassword", testCtx, uint(1), mock.MatchedBy(func(h string) bool {
			return bcrypt.CompareHashAndPassword([]byte(h), []byte("another1")) == nil
		})).Return(nil)

		err := newTestAuthService(repo, time.Now()).ChangePassword(testCtx, 1, "secret1", "another1")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}
