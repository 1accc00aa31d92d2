package v1

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/api/middleware"
	"github.com/campus-portal/event-portal-api/internal/domain"
)

var errNotAuthenticated = errors.New("access denied. please login first")

func currentUser(ctx *gin.Context) (domain.User, *response.Err) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return domain.User{}, response.ErrUnauthorized(errNotAuthenticated)
	}
	return user, nil
}

// optionalUser is nil for anonymous callers.
func optionalUser(ctx *gin.Context) *domain.User {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return nil
	}
	return &user
}

func paramID(ctx *gin.Context, name string) (uint, *response.Err) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid %s: %q", name, ctx.Param(name)))
	}
	return uint(id), nil
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(ctx.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

func queryPage(ctx *gin.Context, defaultLimit int) domain.Page {
	return domain.NewPage(queryInt(ctx, "page", 1), queryInt(ctx, "limit", defaultLimit), defaultLimit)
}

// queryTime accepts RFC 3339 timestamps and plain dates.
func queryTime(ctx *gin.Context, key string) (*time.Time, *response.Err) {
	raw := ctx.Query(key)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}

	return nil, response.ErrBadRequest(fmt.Errorf("invalid %s: expected a date such as 2026-01-31", key))
}

func requestMetadata(ctx *gin.Context) domain.RequestMetadata {
	return domain.RequestMetadata{
		Source:    "web",
		IPAddress: ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
		Referrer:  ctx.Request.Referer(),
	}
}
