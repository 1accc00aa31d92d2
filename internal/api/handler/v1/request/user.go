package request

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/campus-portal/event-portal-api/internal/domain"
)

// UpdateUserRequest is the administrator's view of an account.
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Role       *string `json:"role"`
	IsVerified *bool   `json:"isVerified"`
	Department *string `json:"department"`
	Year       *int    `json:"year"`
	Phone      *string `json:"phone"`
}

func (req *UpdateUserRequest) Validate() error {
	checks := make([]check, 0, 5)
	if req.Name != nil {
		checks = append(checks, field("name", strings.TrimSpace(*req.Name), validation.Required, validation.Length(1, 100)))
	}
	if req.Email != nil {
		checks = append(checks, field("email", strings.TrimSpace(*req.Email), validation.Required, matches(emailPattern, errInvalidEmail)))
	}
	if req.Role != nil {
		checks = append(checks, field("role", *req.Role, validation.Required, validation.In(roles...)))
	}
	if req.Year != nil {
		checks = append(checks, field("year", *req.Year, validation.Required, validation.Min(1), validation.Max(4)))
	}
	if req.Phone != nil {
		checks = append(checks, field("phone", *req.Phone, matches(phonePattern, errInvalidPhone)))
	}
	return firstError(checks...)
}

func (req *UpdateUserRequest) ToPatch() domain.AdminUserPatch {
	patch := domain.AdminUserPatch{
		ProfilePatch: domain.ProfilePatch{
			Name:       req.Name,
			Phone:      req.Phone,
			Department: req.Department,
			Year:       req.Year,
		},
		Email:      req.Email,
		IsVerified: req.IsVerified,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	return patch
}
