package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository"
)

func TestUserService_DeleteUser(t *testing.T) {
	t.Run("self delete is refused", func(t *testing.T) {
		repo := &mockUserRepo{}
		err := NewUserService(repo).DeleteUser(testCtx, 3, 3)
		assert.ErrorIs(t, err, ErrSelfDelete)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := &mockUserRepo{}
		repo.On("Delete", testCtx, uint(4)).Return(repository.ErrUserNotFound)

		err := NewUserService(repo).DeleteUser(testCtx, 3, 4)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	role := domain.RoleAdmin
	verified := true

	repo := &mockUserRepo{}
	repo.On("FindByID", testCtx, uint(2)).Return(domain.User{ID: 2, Role: domain.RoleStudent}, nil)
	repo.On("Update", testCtx, mock.MatchedBy(func(u domain.User) bool {
		return u.Role == domain.RoleAdmin && u.IsVerified
	})).Return(domain.User{ID: 2, Role: domain.RoleAdmin, IsVerified: true}, nil)

	updated, err := NewUserService(repo).UpdateUser(testCtx, 2, domain.AdminUserPatch{Role: &role, IsVerified: &verified})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)
	repo.AssertExpectations(t)

	_, err = NewUserService(repo).UpdateUser(testCtx, 2, domain.AdminUserPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestUserService_ListUsers(t *testing.T) {
	filter := domain.UserFilter{Role: domain.RoleStudent, Page: domain.NewPage(2, 10, 10)}

	repo := &mockUserRepo{}
	repo.On("List", testCtx, filter).Return([]domain.User{{ID: 11}}, int64(11), nil)

	users, pagination, err := NewUserService(repo).ListUsers(testCtx, filter)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, domain.Pagination{Current: 2, Pages: 2, Total: 11, Limit: 10}, pagination)
}

func TestUserService_Stats(t *testing.T) {
	repo := &mockUserRepo{}
	repo.On("Stats", testCtx, 5).Return(domain.UserStats{TotalUsers: 3}, nil)

	stats, err := NewUserService(repo).Stats(testCtx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
}
