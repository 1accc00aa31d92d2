package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/request"
	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/config"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/pkg/jwthelper"
	"github.com/campus-portal/event-portal-api/internal/service"
)

type AuthService interface {
	Signup(ctx context.Context, user domain.User) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
	Profile(ctx context.Context, userID uint) (domain.User, error)
	UpdateProfile(ctx context.Context, userID uint, patch domain.ProfilePatch) (domain.User, error)
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

type AuthHandler struct {
	conf *config.APIConfig
	svc  AuthService
}

func NewAuthHandler(conf *config.APIConfig, svc AuthService) *AuthHandler {
	return &AuthHandler{
		conf: conf,
		svc:  svc,
	}
}

// HandleRegister godoc
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.RegisterRequest true "request body"
// @Success      201      {object}   response.Envelope{data=response.LoginResponse}
// @Failure      400      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/register [post]
func (h *AuthHandler) HandleRegister(ctx *gin.Context) {
	var req request.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	user, err := h.svc.Signup(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserEmailExists),
			errors.Is(err, service.ErrUserStudentIDExists):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrWeakPassword), errors.Is(err, domain.ErrValidation):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("v1.HandleRegister -> h.svc.Signup -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	token, err := h.issueToken(ctx, user.ID)
	if err != nil {
		err = fmt.Errorf("v1.HandleRegister -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.RenderMessage(ctx, http.StatusCreated, "User registered successfully", response.LoginResponse{
		Token: token,
		User:  user.Profile(),
	})
}

// HandleLogin godoc
// @Summary      Login a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.LoginRequest true "request body"
// @Success      200      {object}   response.Envelope{data=response.LoginResponse}
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/login [post]
func (h *AuthHandler) HandleLogin(ctx *gin.Context) {
	req := request.LoginRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))

		return
	}

	user, err := h.svc.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrWrongPassword) {
			response.RenderErr(ctx, response.ErrWrongCredentials(err))

			return
		}

		err = fmt.Errorf("v1.HandleLogin -> h.svc.Login -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	token, err := h.issueToken(ctx, user.ID)
	if err != nil {
		err = fmt.Errorf("v1.HandleLogin -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	response.RenderMessage(ctx, http.StatusOK, "Login successful", response.LoginResponse{
		Token: token,
		User:  user.Profile(),
	})
}

func (h *AuthHandler) issueToken(ctx *gin.Context, userID uint) (string, error) {
	token, err := jwthelper.GenerateToken([]byte(h.conf.JWTSigningKey), h.conf.JWTTTL, userID, ctx.Request.UserAgent())
	if err != nil {
		return "", fmt.Errorf("jwthelper.GenerateToken -> %w", err)
	}
	return token, nil
}

// HandleLogout godoc
// @Summary      Logout
// @Description  Tokens are stateless; the client discards its copy.
// @Tags         auth
// @Produce      json
// @Success      200      {object}   response.Envelope
// @Failure      401      {object}   response.Err
// @Router       /auth/logout [post]
// @Security     BearerAuth
func (h *AuthHandler) HandleLogout(ctx *gin.Context) {
	response.RenderMessage(ctx, http.StatusOK, "Logged out successfully", nil)
}

// HandleGetProfile godoc
// @Summary      Get the caller's profile
// @Tags         auth
// @Produce      json
// @Success      200      {object}   response.Envelope{data=response.ProfileResponse}
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /auth/profile [get]
// @Security     BearerAuth
func (h *AuthHandler) HandleGetProfile(ctx *gin.Context) {
	caller, respErr := currentUser(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, err := h.svc.Profile(ctx.Request.Context(), caller.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("user", "id", caller.ID))
			return
		}
		err = fmt.Errorf("v1.HandleGetProfile -> h.svc.Profile -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.ProfileResponse{User: user.Profile()})
}

// HandleUpdateProfile godoc
// @Summary      Update the caller's profile
// @Description  Only name, phone, department, year, avatar and preferences can be changed.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.UpdateProfileRequest true "request body"
// @Success      200      {object}   response.Envelope{data=response.ProfileResponse}
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Router       /auth/profile [put]
// @Security     BearerAuth
func (h *AuthHandler) HandleUpdateProfile(ctx *gin.Context) {
	caller, respErr := currentUser(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	user, err := h.svc.UpdateProfile(ctx.Request.Context(), caller.ID, req.ToPatch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPatch):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrUserNotFound):
			response.RenderErr(ctx, response.ErrNotFound("user", "id", caller.ID))
		default:
			err = fmt.Errorf("v1.HandleUpdateProfile -> h.svc.UpdateProfile -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "Profile updated successfully", response.ProfileResponse{User: user.Profile()})
}

// HandleChangePassword godoc
// @Summary      Change the caller's password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.ChangePasswordRequest true "request body"
// @Success      200      {object}   response.Envelope
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Router       /auth/change-password [put]
// @Security     BearerAuth
func (h *AuthHandler) HandleChangePassword(ctx *gin.Context) {
	caller, respErr := currentUser(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	err := h.svc.ChangePassword(ctx.Request.Context(), caller.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongCurrentPassword), errors.Is(err, service.ErrWeakPassword):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrUserNotFound):
			response.RenderErr(ctx, response.ErrNotFound("user", "id", caller.ID))
		default:
			err = fmt.Errorf("v1.HandleChangePassword -> h.svc.ChangePassword -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "Password changed successfully", nil)
}
