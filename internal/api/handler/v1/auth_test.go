package v1

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-portal/event-portal-api/internal/config"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/pkg/jwthelper"
	"github.com/campus-portal/event-portal-api/internal/service"
)

var apiConf = &config.APIConfig{JWTSigningKey: "handler-test-key", JWTTTL: time.Hour}

func TestAuthHandler_HandleRegister(t *testing.T) {
	body := map[string]interface{}{"name": "Sam", "email": "sam@college.edu", "password": "secret1"}

	t.Run("issues a token and hides the password", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Signup", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
			return u.Email == "sam@college.edu" && u.Password == "secret1"
		})).Return(domain.User{ID: 7, Name: "Sam", Email: "sam@college.edu", Password: "$2a$hash", Role: domain.RoleStudent}, nil)

		r := newRouter(nil, http.MethodPost, "/auth/register", NewAuthHandler(apiConf, svc).HandleRegister)
		w, env := serve(t, r, http.MethodPost, "/auth/register", body)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "User registered successfully", env.Message)
		assert.NotContains(t, string(env.Data), "password")
		assert.NotContains(t, string(env.Data), "$2a$hash")

		var data struct {
			Token string `json:"token"`
			User  struct {
				ID uint `json:"id"`
			} `json:"user"`
		}
		decode(t, env.Data, &data)
		claims, err := jwthelper.ParseToken([]byte(apiConf.JWTSigningKey), data.Token)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
		assert.Equal(t, uint(7), data.User.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Signup", mock.Anything, mock.Anything).Return(domain.User{}, service.ErrUserEmailExists)

		r := newRouter(nil, http.MethodPost, "/auth/register", NewAuthHandler(apiConf, svc).HandleRegister)
		w, env := serve(t, r, http.MethodPost, "/auth/register", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, env.Success)
		assert.Equal(t, service.ErrUserEmailExists.Error(), env.Message)
	})

	t.Run("invalid body never reaches the service", func(t *testing.T) {
		svc := new(mockAuthService)
		r := newRouter(nil, http.MethodPost, "/auth/register", NewAuthHandler(apiConf, svc).HandleRegister)

		w, _ := serve(t, r, http.MethodPost, "/auth/register", map[string]interface{}{"name": "Sam", "email": "nope", "password": "secret1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = serve(t, r, http.MethodPost, "/auth/register", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		svc.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"success", nil, http.StatusOK, "Login successful"},
		{"wrong password", service.ErrWrongPassword, http.StatusUnauthorized, "invalid credentials"},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAuthService)
			user := domain.User{ID: 2, Email: "sam@college.edu"}
			if tt.err != nil {
				user = domain.User{}
			}
			svc.On("Login", mock.Anything, "sam@college.edu", "secret1").Return(user, tt.err)

			r := newRouter(nil, http.MethodPost, "/auth/login", NewAuthHandler(apiConf, svc).HandleLogin)
			w, env := serve(t, r, http.MethodPost, "/auth/login", map[string]string{"email": "sam@college.edu", "password": "secret1"})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, env.Message)
			assert.Equal(t, tt.err == nil, env.Success)
		})
	}
}

func TestAuthHandler_Profile(t *testing.T) {
	t.Run("requires a caller", func(t *testing.T) {
		r := newRouter(nil, http.MethodGet, "/auth/profile", NewAuthHandler(apiConf, new(mockAuthService)).HandleGetProfile)
		w, _ := serve(t, r, http.MethodGet, "/auth/profile", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("update ignores fields outside the allow-list", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("UpdateProfile", mock.Anything, student.ID, mock.MatchedBy(func(p domain.ProfilePatch) bool {
			return p.Name != nil && *p.Name == "Samuel"
		})).Return(domain.User{ID: student.ID, Name: "Samuel", Role: domain.RoleStudent}, nil)

		r := newRouter(&student, http.MethodPut, "/auth/profile", NewAuthHandler(apiConf, svc).HandleUpdateProfile)
		w, env := serve(t, r, http.MethodPut, "/auth/profile", map[string]interface{}{"name": "Samuel", "role": "admin"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(env.Data), `"role":"student"`)
		svc.AssertExpectations(t)
	})

	t.Run("change password with the wrong current password", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("ChangePassword", mock.Anything, student.ID, "old-pass", "new-pass").Return(service.ErrWrongCurrentPassword)

		r := newRouter(&student, http.MethodPut, "/auth/change-password", NewAuthHandler(apiConf, svc).HandleChangePassword)
		w, env := serve(t, r, http.MethodPut, "/auth/change-password", map[string]string{"currentPassword": "old-pass", "newPassword": "new-pass"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.ErrWrongCurrentPassword.Error(), env.Message)
	})
}

func TestAuthHandler_HandleLogout(t *testing.T) {
	r := newRouter(&student, http.MethodPost, "/auth/logout", NewAuthHandler(apiConf, new(mockAuthService)).HandleLogout)

	w, env := serve(t, r, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Logged out successfully", env.Message)
}
