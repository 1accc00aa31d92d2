package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/pkg/jwthelper"
	"github.com/campus-portal/event-portal-api/internal/service"
)

const currentUserKey = "currentUser"

var (
	ErrNoToken          = errors.New("access denied. no token provided")
	ErrTokenUserMissing = errors.New("token is valid but user not found")
	ErrLoginRequired    = errors.New("access denied. please login first")
)

type UserFinder interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

type Authenticator struct {
	key   []byte
	users UserFinder
}

func NewAuthenticator(key string, users UserFinder) *Authenticator {
	return &Authenticator{
		key:   []byte(key),
		users: users,
	}
}

// VerifyJWT rejects the request unless it carries a valid bearer token for an
// existing user, who is then available through CurrentUser.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := jwthelper.TokenFromHeader(ctx.GetHeader("Authorization"))
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(ErrNoToken))
			return
		}

		user, err := a.Resolve(ctx.Request.Context(), token)
		if err != nil {
			renderAuthErr(ctx, err)
			return
		}

		SetCurrentUser(ctx, user)
		ctx.Next()
	}
}

// OptionalJWT identifies the caller when it can and lets the request through
// either way.
func (a *Authenticator) OptionalJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := jwthelper.TokenFromHeader(ctx.GetHeader("Authorization"))
		if err == nil {
			user, err := a.Resolve(ctx.Request.Context(), token)
			if err == nil {
				SetCurrentUser(ctx, user)
			} else {
				zap.L().Debug("optional auth failed", zap.Error(err))
			}
		}

		ctx.Next()
	}
}

// Resolve verifies token and loads the user it was issued for.
func (a *Authenticator) Resolve(ctx context.Context, token string) (domain.User, error) {
	claims, err := jwthelper.ParseToken(a.key, token)
	if err != nil {
		return domain.User{}, err
	}

	user, err := a.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, ErrTokenUserMissing
		}
		return domain.User{}, fmt.Errorf("a.users.GetUser -> %w", err)
	}

	return user, nil
}

func renderAuthErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, jwthelper.ErrTokenExpired),
		errors.Is(err, jwthelper.ErrInvalidToken),
		errors.Is(err, jwthelper.ErrMissingToken),
		errors.Is(err, ErrTokenUserMissing):
		response.RenderErr(ctx, response.ErrUnauthorized(err))
	default:
		err = fmt.Errorf("middleware.VerifyJWT -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}

// RequireRoles must run after VerifyJWT.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := CurrentUser(ctx)
		if !ok {
			response.RenderErr(ctx, response.ErrUnauthorized(ErrLoginRequired))
			return
		}

		if !user.HasRole(roles...) {
			err := fmt.Errorf("access denied. role '%s' is not authorized to access this resource", user.Role)
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
			return
		}

		ctx.Next()
	}
}

func SetCurrentUser(ctx *gin.Context, user domain.User) {
	ctx.Set(currentUserKey, user)
}

func CurrentUser(ctx *gin.Context) (domain.User, bool) {
	v, ok := ctx.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := v.(domain.User)
	return user, ok
}
