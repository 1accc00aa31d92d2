package request

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/campus-portal/event-portal-api/internal/domain"
)

var roles = []interface{}{string(domain.RoleStudent), string(domain.RoleAdmin)}

type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role,omitempty"`
	StudentID  string `json:"studentId,omitempty"`
	Department string `json:"department,omitempty"`
	Year       int    `json:"year,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (req *RegisterRequest) Validate() error {
	return firstError(
		field("name", strings.TrimSpace(req.Name), validation.Required, validation.Length(1, 100)),
		field("email", strings.TrimSpace(req.Email), validation.Required, matches(emailPattern, errInvalidEmail)),
		field("password", req.Password, validation.Required, validation.Length(domain.MinPasswordLength, 0)),
		field("role", req.Role, validation.In(roles...)),
		field("year", req.Year, validation.Min(1), validation.Max(4)),
		field("phone", req.Phone, matches(phonePattern, errInvalidPhone)),
	)
}

func (req *RegisterRequest) ToDomain() domain.User {
	return domain.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       domain.Role(req.Role),
		StudentID:  strings.TrimSpace(req.StudentID),
		Department: strings.TrimSpace(req.Department),
		Year:       req.Year,
		Phone:      req.Phone,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *LoginRequest) Validate() error {
	return firstError(
		field("email", strings.TrimSpace(req.Email), validation.Required, matches(emailPattern, errInvalidEmail)),
		field("password", req.Password, validation.Required),
	)
}

// UpdateProfileRequest only binds the fields a user may change on their own
// account; anything else in the body is ignored.
type UpdateProfileRequest struct {
	Name        *string             `json:"name"`
	Phone       *string             `json:"phone"`
	Department  *string             `json:"department"`
	Year        *int                `json:"year"`
	Avatar      *string             `json:"avatar"`
	Preferences *domain.Preferences `json:"preferences"`
}

func (req *UpdateProfileRequest) Validate() error {
	checks := make([]check, 0, 4)
	if req.Name != nil {
		checks = append(checks, field("name", strings.TrimSpace(*req.Name), validation.Required, validation.Length(1, 100)))
	}
	if req.Year != nil {
		checks = append(checks, field("year", *req.Year, validation.Required, validation.Min(1), validation.Max(4)))
	}
	if req.Phone != nil {
		checks = append(checks, field("phone", *req.Phone, matches(phonePattern, errInvalidPhone)))
	}
	if req.Avatar != nil {
		checks = append(checks, field("avatar", *req.Avatar, is.URL))
	}
	return firstError(checks...)
}

func (req *UpdateProfileRequest) ToPatch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Name:        req.Name,
		Phone:       req.Phone,
		Department:  req.Department,
		Year:        req.Year,
		Avatar:      req.Avatar,
		Preferences: req.Preferences,
	}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (req *ChangePasswordRequest) Validate() error {
	return firstError(
		field("currentPassword", req.CurrentPassword, validation.Required),
		field("newPassword", req.NewPassword, validation.Required, validation.Length(domain.MinPasswordLength, 0)),
	)
}
