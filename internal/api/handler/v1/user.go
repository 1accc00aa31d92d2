package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/request"
	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/service"
)

type UserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, domain.Pagination, error)
	UpdateUser(ctx context.Context, id uint, patch domain.AdminUserPatch) (domain.User, error)
	DeleteUser(ctx context.Context, callerID, id uint) error
	Stats(ctx context.Context) (domain.UserStats, error)
}

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleListUsers godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        page      query     int     false  "page number"
// @Param        limit     query     int     false  "page size"
// @Param        role      query     string  false  "student or admin"
// @Param        verified  query     bool    false  "verification flag"
// @Param        search    query     string  false  "matches name, email or student id"
// @Success      200      {object}   response.Envelope{data=response.UserList}
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /users [get]
// @Security     BearerAuth
func (h *UserHandler) HandleListUsers(ctx *gin.Context) {
	filter := domain.UserFilter{
		Role:   domain.Role(ctx.Query("role")),
		Search: strings.TrimSpace(ctx.Query("search")),
		Page:   queryPage(ctx, domain.DefaultPageLimit),
	}
	if raw := ctx.Query("verified"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid verified: %q", raw)))
			return
		}
		filter.Verified = &verified
	}

	users, pagination, err := h.svc.ListUsers(ctx.Request.Context(), filter)
	if err != nil {
		err = fmt.Errorf("v1.HandleListUsers -> h.svc.ListUsers -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.UserList{
		Users:      response.Profiles(users),
		Pagination: pagination,
	})
}

// HandleGetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "user id"
// @Success      200      {object}   response.Envelope{data=response.UserResponse}
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /users/{id} [get]
// @Security     BearerAuth
func (h *UserHandler) HandleGetUser(ctx *gin.Context) {
	id, respErr := paramID(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, err := h.svc.GetUser(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("user", "id", id))
			return
		}

		err = fmt.Errorf("v1.HandleGetUser -> h.svc.GetUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.UserResponse{User: user.Profile()})
}

// HandleUpdateUser godoc
// @Summary      Update a user
// @Description  Administrators may change name, email, role, isVerified, department, year and phone.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id        path      int                        true  "user id"
// @Param        request   body      request.UpdateUserRequest  true  "request body"
// @Success      200      {object}   response.Envelope{data=response.UserResponse}
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /users/{id} [put]
// @Security     BearerAuth
func (h *UserHandler) HandleUpdateUser(ctx *gin.Context) {
	id, respErr := paramID(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	user, err := h.svc.UpdateUser(ctx.Request.Context(), id, req.ToPatch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.RenderErr(ctx, response.ErrNotFound("user", "id", id))
		case errors.Is(err, service.ErrEmptyPatch),
			errors.Is(err, service.ErrUserEmailExists),
			errors.Is(err, service.ErrUserStudentIDExists):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleUpdateUser -> h.svc.UpdateUser -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "User updated successfully", response.UserResponse{User: user.Profile()})
}

// HandleDeleteUser godoc
// @Summary      Delete a user
// @Description  Administrators cannot delete their own account. Registrations are kept.
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "user id"
// @Success      200      {object}   response.Envelope
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /users/{id} [delete]
// @Security     BearerAuth
func (h *UserHandler) HandleDeleteUser(ctx *gin.Context) {
	caller, respErr := currentUser(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id, respErr := paramID(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	err := h.svc.DeleteUser(ctx.Request.Context(), caller.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfDelete):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrUserNotFound):
			response.RenderErr(ctx, response.ErrNotFound("user", "id", id))
		default:
			err = fmt.Errorf("v1.HandleDeleteUser -> h.svc.DeleteUser -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "User deleted successfully", nil)
}

// HandleStats godoc
// @Summary      User statistics
// @Description  Counts per role with verified counts, the total, and the five newest accounts.
// @Tags         auth
// @Produce      json
// @Success      200      {object}   response.Envelope{data=response.UserStats}
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /auth/stats [get]
// @Security     BearerAuth
func (h *UserHandler) HandleStats(ctx *gin.Context) {
	stats, err := h.svc.Stats(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleStats -> h.svc.Stats -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.NewUserStats(stats))
}
