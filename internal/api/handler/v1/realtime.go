package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/api/middleware"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/pkg/jwthelper"
)

type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, user *domain.User) error
}

type TokenResolver interface {
	Resolve(ctx context.Context, token string) (domain.User, error)
}

type RealtimeHandler struct {
	hub  WebSocketServer
	auth TokenResolver
}

func NewRealtimeHandler(hub WebSocketServer, auth TokenResolver) *RealtimeHandler {
	return &RealtimeHandler{
		hub:  hub,
		auth: auth,
	}
}

// HandleWebSocket godoc
// @Summary      Open the real-time connection
// @Description  Browsers cannot set headers on a websocket handshake, so the token may also come in the token query parameter. Without a token the connection only receives broadcasts.
// @Tags         realtime
// @Param        token   query     string  false  "bearer token"
// @Success      101
// @Failure      401      {object}   response.Err
// @Router       /ws [get]
func (h *RealtimeHandler) HandleWebSocket(ctx *gin.Context) {
	token, err := jwthelper.TokenFromHeader(ctx.GetHeader("Authorization"))
	if err != nil {
		token = ctx.Query("token")
	}

	var user *domain.User
	if token != "" {
		resolved, err := h.auth.Resolve(ctx.Request.Context(), token)
		if err != nil {
			if errors.Is(err, jwthelper.ErrInvalidToken) ||
				errors.Is(err, jwthelper.ErrTokenExpired) ||
				errors.Is(err, middleware.ErrTokenUserMissing) {
				response.RenderErr(ctx, response.ErrUnauthorized(err))
				return
			}
			err = fmt.Errorf("v1.HandleWebSocket -> h.auth.Resolve -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
			return
		}
		user = &resolved
	}

	if err = h.hub.ServeWS(ctx.Writer, ctx.Request, user); err != nil {
		// The upgrader has already written the handshake error.
		zap.L().Debug("realtime: upgrade failed", zap.Error(err))
	}
}
