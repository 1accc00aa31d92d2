package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-portal/event-portal-api/internal/api/middleware"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/service"
)

var (
	student = domain.User{ID: 2, Name: "Sam", Email: "sam@college.edu", Role: domain.RoleStudent}
	admin   = domain.User{ID: 1, Name: "Ada", Email: "ada@college.edu", Role: domain.RoleAdmin}
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// newRouter registers handler at method/path, with caller as the
// authenticated user when it is not nil.
func newRouter(caller *domain.User, method, path string, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, path, func(ctx *gin.Context) {
		if caller != nil {
			middleware.SetCurrentUser(ctx, *caller)
		}
		ctx.Next()
	}, handler)
	return r
}

func serve(t *testing.T, r http.Handler, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Signup(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) Profile(ctx context.Context, userID uint) (domain.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) UpdateProfile(ctx context.Context, userID uint, patch domain.ProfilePatch) (domain.User, error) {
	args := m.Called(ctx, userID, patch)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	args := m.Called(ctx, userID, current, next)
	return args.Error(0)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, domain.Pagination, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.User), args.Get(1).(domain.Pagination), args.Error(2)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id uint, patch domain.AdminUserPatch) (domain.User, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserService) DeleteUser(ctx context.Context, callerID, id uint) error {
	args := m.Called(ctx, callerID, id)
	return args.Error(0)
}

func (m *mockUserService) Stats(ctx context.Context) (domain.UserStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.UserStats), args.Error(1)
}

type mockEventService struct {
	mock.Mock
}

func (m *mockEventService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, domain.Pagination, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Event), args.Get(1).(domain.Pagination), args.Error(2)
}

func (m *mockEventService) SearchEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, domain.Pagination, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Event), args.Get(1).(domain.Pagination), args.Error(2)
}

func (m *mockEventService) UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventService) EventsByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, category, limit)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventService) GetEvent(ctx context.Context, id uint, caller *domain.User) (service.EventDetail, error) {
	args := m.Called(ctx, id, caller)
	return args.Get(0).(service.EventDetail), args.Error(1)
}

func (m *mockEventService) CreateEvent(ctx context.Context, event domain.Event, organizer domain.User) (domain.Event, error) {
	args := m.Called(ctx, event, organizer)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventService) UpdateEvent(ctx context.Context, id uint, patch domain.EventPatch, caller domain.User) (domain.Event, error) {
	args := m.Called(ctx, id, patch, caller)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventService) DeleteEvent(ctx context.Context, id uint, caller domain.User) error {
	args := m.Called(ctx, id, caller)
	return args.Error(0)
}

func (m *mockEventService) Analytics(ctx context.Context, timeframe string) (domain.EventAnalytics, error) {
	args := m.Called(ctx, timeframe)
	return args.Get(0).(domain.EventAnalytics), args.Error(1)
}

type mockRegistrationService struct {
	mock.Mock
}

func (m *mockRegistrationService) Register(ctx context.Context, user domain.User, eventID uint, answers map[string]interface{}, meta domain.RequestMetadata) (domain.Registration, error) {
	args := m.Called(ctx, user, eventID, answers, meta)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationService) Cancel(ctx context.Context, caller domain.User, id uint, reason string) (domain.Registration, error) {
	args := m.Called(ctx, caller, id, reason)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationService) GetRegistration(ctx context.Context, caller domain.User, id uint) (domain.Registration, error) {
	args := m.Called(ctx, caller, id)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationService) MyRegistrations(ctx context.Context, userID uint, status domain.RegistrationStatus, page domain.Page) ([]domain.Registration, domain.Pagination, error) {
	args := m.Called(ctx, userID, status, page)
	return args.Get(0).([]domain.Registration), args.Get(1).(domain.Pagination), args.Error(2)
}

func (m *mockRegistrationService) SubmitFeedback(ctx context.Context, caller domain.User, id uint, in service.FeedbackInput) (domain.Registration, error) {
	args := m.Called(ctx, caller, id, in)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationService) EventRegistrations(ctx context.Context, eventID uint, status domain.RegistrationStatus, page domain.Page) (service.EventRegistrations, error) {
	args := m.Called(ctx, eventID, status, page)
	return args.Get(0).(service.EventRegistrations), args.Error(1)
}

func (m *mockRegistrationService) MarkAttendance(ctx context.Context, id uint, checkIn bool, notes string) (domain.Registration, error) {
	args := m.Called(ctx, id, checkIn, notes)
	return args.Get(0).(domain.Registration), args.Error(1)
}

func (m *mockRegistrationService) Analytics(ctx context.Context, eventID uint, from, to *time.Time) (domain.RegistrationAnalytics, error) {
	args := m.Called(ctx, eventID, from, to)
	return args.Get(0).(domain.RegistrationAnalytics), args.Error(1)
}

func (m *mockRegistrationService) BulkSetStatus(ctx context.Context, ids []uint, status domain.RegistrationStatus) (int64, error) {
	args := m.Called(ctx, ids, status)
	return args.Get(0).(int64), args.Error(1)
}
