package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/request"
	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/service"
)

type EventService interface {
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, domain.Pagination, error)
	SearchEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, domain.Pagination, error)
	UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error)
	EventsByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.Event, error)
	GetEvent(ctx context.Context, id uint, caller *domain.User) (service.EventDetail, error)
	CreateEvent(ctx context.Context, event domain.Event, organizer domain.User) (domain.Event, error)
	UpdateEvent(ctx context.Context, id uint, patch domain.EventPatch, caller domain.User) (domain.Event, error)
	DeleteEvent(ctx context.Context, id uint, caller domain.User) error
	Analytics(ctx context.Context, timeframe string) (domain.EventAnalytics, error)
}

type EventHandler struct {
	svc EventService
	now func() time.Time
}

func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{
		svc: svc,
		now: time.Now,
	}
}

func (h *EventHandler) present(e domain.Event) response.Event {
	now := h.now()
	return response.Event{
		Event:              e,
		RegistrationStatus: e.RegistrationStatus(now),
		IsAvailable:        e.IsAvailable(now),
	}
}

func (h *EventHandler) presentAll(events []domain.Event) []response.Event {
	out := make([]response.Event, 0, len(events))
	for _, e := range events {
		out = append(out, h.present(e))
	}
	return out
}

// eventFilter reads the listing query. Only administrators may look past
// published events, and status=all drops the status filter for them. Unknown
// sort keys fall back to the start date.
func eventFilter(ctx *gin.Context, caller *domain.User) (domain.EventFilter, *response.Err) {
	filter := domain.EventFilter{
		Status:   domain.EventPublished,
		Category: domain.Category(ctx.Query("category")),
		Search:   strings.TrimSpace(ctx.Query("search")),
		SortBy:   ctx.DefaultQuery("sortBy", "dateTime.start"),
		Desc:     strings.EqualFold(ctx.Query("sortOrder"), "desc"),
		Page:     queryPage(ctx, domain.DefaultPageLimit),
	}

	if status := ctx.Query("status"); status != "" && caller != nil && caller.IsAdmin() {
		filter.Status = domain.EventStatus(status)
		if status == "all" {
			filter.Status = ""
		}
	}

	if raw := ctx.Query("upcoming"); raw != "" {
		upcoming, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, response.ErrBadRequest(fmt.Errorf("invalid upcoming: %q", raw))
		}
		filter.Upcoming = upcoming
	}

	var respErr *response.Err
	if filter.From, respErr = queryTime(ctx, "dateFrom"); respErr != nil {
		return filter, respErr
	}
	if filter.To, respErr = queryTime(ctx, "dateTo"); respErr != nil {
		return filter, respErr
	}

	return filter, nil
}

// HandleListEvents godoc
// @Summary      List events
// @Description  Published events, soonest first. Administrators may filter by any status.
// @Tags         events
// @Produce      json
// @Param        page       query     int     false  "page number"
// @Param        limit      query     int     false  "page size"
// @Param        category   query     string  false  "category"
// @Param        status     query     string  false  "status (administrators only)"
// @Param        search     query     string  false  "text search"
// @Param        upcoming   query     bool    false  "only events that have not started"
// @Param        sortBy     query     string  false  "dateTime.start, createdAt, title, analytics.views, ..."
// @Param        sortOrder  query     string  false  "asc or desc"
// @Success      200      {object}   response.Envelope{data=response.EventList}
// @Failure      400      {object}   response.Err
// @Router       /events [get]
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	filter, respErr := eventFilter(ctx, optionalUser(ctx))
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	events, pagination, err := h.svc.ListEvents(ctx.Request.Context(), filter)
	if err != nil {
		err = fmt.Errorf("v1.HandleListEvents -> h.svc.ListEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.EventList{
		Events:     h.presentAll(events),
		Pagination: &pagination,
	})
}

// HandleSearchEvents godoc
// @Summary      Search published events
// @Tags         events
// @Produce      json
// @Param        q          query     string  true   "at least 2 characters"
// @Param        category   query     string  false  "category"
// @Param        dateFrom   query     string  false  "earliest start date"
// @Param        dateTo     query     string  false  "latest start date"
// @Param        page       query     int     false  "page number"
// @Param        limit      query     int     false  "page size"
// @Success      200      {object}   response.Envelope{data=response.EventList}
// @Failure      400      {object}   response.Err
// @Router       /events/search [get]
func (h *EventHandler) HandleSearchEvents(ctx *gin.Context) {
	filter, respErr := eventFilter(ctx, nil)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	filter.Search = ctx.Query("q")

	events, pagination, err := h.svc.SearchEvents(ctx.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrSearchTooShort) {
			response.RenderErr(ctx, response.ErrValidation(err))
			return
		}
		err = fmt.Errorf("v1.HandleSearchEvents -> h.svc.SearchEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.EventList{
		Events:     h.presentAll(events),
		Pagination: &pagination,
	})
}

// HandleUpcomingEvents godoc
// @Summary      Upcoming published events
// @Tags         events
// @Produce      json
// @Param        limit   query     int  false  "how many, default 10"
// @Success      200      {object}   response.Envelope{data=response.EventList}
// @Router       /events/upcoming [get]
func (h *EventHandler) HandleUpcomingEvents(ctx *gin.Context) {
	events, err := h.svc.UpcomingEvents(ctx.Request.Context(), queryInt(ctx, "limit", domain.DefaultPageLimit))
	if err != nil {
		err = fmt.Errorf("v1.HandleUpcomingEvents -> h.svc.UpcomingEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	count := len(events)
	response.Render(ctx, http.StatusOK, response.EventList{Events: h.presentAll(events), Count: &count})
}

// HandleEventsByCategory godoc
// @Summary      Upcoming published events of one category
// @Tags         events
// @Produce      json
// @Param        category  path      string  true   "category"
// @Param        limit     query     int     false  "how many, default 10"
// @Success      200      {object}   response.Envelope{data=response.EventList}
// @Failure      400      {object}   response.Err
// @Router       /events/category/{category} [get]
func (h *EventHandler) HandleEventsByCategory(ctx *gin.Context) {
	category := domain.Category(ctx.Param("category"))
	known := false
	for _, c := range domain.Categories {
		if c == category {
			known = true
			break
		}
	}
	if !known {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("unknown category %q", category)))
		return
	}

	events, err := h.svc.EventsByCategory(ctx.Request.Context(), category, queryInt(ctx, "limit", domain.DefaultPageLimit))
	if err != nil {
		err = fmt.Errorf("v1.HandleEventsByCategory -> h.svc.EventsByCategory -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	count := len(events)
	response.Render(ctx, http.StatusOK, response.EventList{Events: h.presentAll(events), Count: &count})
}

// HandleGetEvent godoc
// @Summary      Get an event
// @Description  Counts a view unless the caller organizes the event, and reports the caller's registration.
// @Tags         events
// @Produce      json
// @Param        id   path      int  true  "event id"
// @Success      200      {object}   response.Envelope{data=response.EventDetail}
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /events/{id} [get]
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	id, respErr := paramID(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	detail, err := h.svc.GetEvent(ctx.Request.Context(), id, optionalUser(ctx))
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "id", id))
			return
		}
		err = fmt.Errorf("v1.HandleGetEvent -> h.svc.GetEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.EventDetail{
		Event:        h.present(detail.Event),
		IsRegistered: detail.IsRegistered,
		Registration: detail.Registration,
	})
}

// HandleCreateEvent godoc
// @Summary      Create an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request   body      request.CreateEventRequest true "request body"
// @Success      201      {object}   response.Envelope{data=response.EventResponse}
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /events [post]
// @Security     BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	caller, respErr := currentUser(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	event, err := h.svc.CreateEvent(ctx.Request.Context(), req.ToDomain(), caller)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			response.RenderErr(ctx, response.ErrValidation(err))
		case errors.Is(err, service.ErrEventSlugExists):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleCreateEvent -> h.svc.CreateEvent -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusCreated, "Event created successfully", response.EventResponse{Event: h.present(event)})
}

// HandleUpdateEvent godoc
// @Summary      Update an event
// @Description  The organizer or an administrator replaces the sections present in the body.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        id        path      int                         true  "event id"
// @Param        request   body      request.UpdateEventRequest  true  "request body"
// @Success      200      {object}   response.Envelope{data=response.EventResponse}
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /events/{id} [put]
// @Security     BearerAuth
func (h *EventHandler) HandleUpdateEvent(ctx *gin.Context) {
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

	var req request.UpdateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.UpdateEvent(ctx.Request.Context(), id, req.ToPatch(), caller)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "id", id))
		case errors.Is(err, service.ErrNotEventManager):
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
		case errors.Is(err, domain.ErrValidation):
			response.RenderErr(ctx, response.ErrValidation(err))
		case errors.Is(err, service.ErrEventSlugExists):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleUpdateEvent -> h.svc.UpdateEvent -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "Event updated successfully", response.EventResponse{Event: h.present(event)})
}

// HandleDeleteEvent godoc
// @Summary      Delete an event
// @Description  Refused while any registration references the event.
// @Tags         events
// @Produce      json
// @Param        id   path      int  true  "event id"
// @Success      200      {object}   response.Envelope
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /events/{id} [delete]
// @Security     BearerAuth
func (h *EventHandler) HandleDeleteEvent(ctx *gin.Context) {
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

	err := h.svc.DeleteEvent(ctx.Request.Context(), id, caller)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "id", id))
		case errors.Is(err, service.ErrNotEventManager):
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
		case errors.Is(err, service.ErrEventHasRegistrations):
			response.RenderErr(ctx, response.ErrConflict(err))
		default:
			err = fmt.Errorf("v1.HandleDeleteEvent -> h.svc.DeleteEvent -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "Event deleted successfully", nil)
}

// HandleEventAnalytics godoc
// @Summary      Event analytics
// @Tags         events
// @Produce      json
// @Param        timeframe   query     string  false  "trailing window in days, default 30d"
// @Success      200      {object}   response.Envelope{data=domain.EventAnalytics}
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /events/admin/analytics [get]
// @Security     BearerAuth
func (h *EventHandler) HandleEventAnalytics(ctx *gin.Context) {
	analytics, err := h.svc.Analytics(ctx.Request.Context(), ctx.Query("timeframe"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeframe) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
		err = fmt.Errorf("v1.HandleEventAnalytics -> h.svc.Analytics -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, analytics)
}
