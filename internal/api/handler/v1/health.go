package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
)

const healthPingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler reports database reachability when db is not nil.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db: db,
	}
}

// HandleHealthcheck godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200      {object}   response.Envelope{data=response.Health}
// @Failure      503      {object}   response.Envelope{data=response.Health}
// @Router       /health [get]
func (h *HealthHandler) HandleHealthcheck(ctx *gin.Context) {
	status := response.Health{
		Status:    "OK",
		Message:   "College Event Portal API is running",
		Timestamp: time.Now().UTC(),
	}

	if h.db == nil {
		response.Render(ctx, http.StatusOK, status)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.db.PingContext(pingCtx); err != nil {
		zap.L().Warn("health: database unreachable", zap.Error(err))
		status.Status = "DEGRADED"
		status.Database = "unreachable"
		ctx.JSON(http.StatusServiceUnavailable, response.Envelope{Success: false, Message: "database unreachable", Data: status})
		return
	}

	status.Database = "connected"
	response.Render(ctx, http.StatusOK, status)
}
