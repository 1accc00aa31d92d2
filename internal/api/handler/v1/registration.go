package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/request"
	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/service"
)

const eventRegistrationsPageLimit = 20

type RegistrationService interface {
	Register(ctx context.Context, user domain.User, eventID uint, answers map[string]interface{}, meta domain.RequestMetadata) (domain.Registration, error)
	Cancel(ctx context.Context, caller domain.User, id uint, reason string) (domain.Registration, error)
	GetRegistration(ctx context.Context, caller domain.User, id uint) (domain.Registration, error)
	MyRegistrations(ctx context.Context, userID uint, status domain.RegistrationStatus, page domain.Page) ([]domain.Registration, domain.Pagination, error)
	SubmitFeedback(ctx context.Context, caller domain.User, id uint, in service.FeedbackInput) (domain.Registration, error)
	EventRegistrations(ctx context.Context, eventID uint, status domain.RegistrationStatus, page domain.Page) (service.EventRegistrations, error)
	MarkAttendance(ctx context.Context, id uint, checkIn bool, notes string) (domain.Registration, error)
	Analytics(ctx context.Context, eventID uint, from, to *time.Time) (domain.RegistrationAnalytics, error)
	BulkSetStatus(ctx context.Context, ids []uint, status domain.RegistrationStatus) (int64, error)
}

type RegistrationHandler struct {
	svc RegistrationService
}

func NewRegistrationHandler(svc RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		svc: svc,
	}
}

// renderRegistrationErr maps the registration rule violations shared by
// several endpoints. It reports false when err is not one of them.
func renderRegistrationErr(ctx *gin.Context, err error, id uint) bool {
	switch {
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.RenderErr(ctx, response.ErrNotFound("registration", "id", id))
	case errors.Is(err, service.ErrNotRegistrationOwner):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	case errors.Is(err, service.ErrRegistrationChanged):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, domain.ErrValidation):
		response.RenderErr(ctx, response.ErrValidation(err))
	case errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrCancelAfterAttendance),
		errors.Is(err, service.ErrCancellationDeadline),
		errors.Is(err, service.ErrFeedbackNotAttended),
		errors.Is(err, service.ErrFeedbackDisabled):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	default:
		return false
	}
	return true
}

// HandleRegister godoc
// @Summary      Register for an event
// @Description  Claims a seat when the event is published, open and not full.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        request   body      request.RegisterForEventRequest true "request body"
// @Success      201      {object}   response.Envelope{data=response.RegistrationResponse}
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /registrations [post]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleRegister(ctx *gin.Context) {
	caller, respErr := currentUser(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.RegisterForEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	reg, err := h.svc.Register(ctx.Request.Context(), caller, req.EventID, req.RegistrationData, requestMetadata(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "id", req.EventID))
		case errors.Is(err, service.ErrEventNotPublished),
			errors.Is(err, service.ErrRegistrationClosed),
			errors.Is(err, service.ErrAlreadyRegistered):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, domain.ErrValidation):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("v1.HandleRegister -> h.svc.Register -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	response.RenderMessage(ctx, http.StatusCreated, "Successfully registered for event", response.RegistrationResponse{Registration: reg})
}

// HandleMyRegistrations godoc
// @Summary      The caller's registrations
// @Tags         registrations
// @Produce      json
// @Param        status   query     string  false  "registration status"
// @Param        page     query     int     false  "page number"
// @Param        limit    query     int     false  "page size"
// @Success      200      {object}   response.Envelope{data=response.RegistrationList}
// @Failure      401      {object}   response.Err
// @Router       /registrations/my-registrations [get]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleMyRegistrations(ctx *gin.Context) {
	caller, respErr := currentUser(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	status := domain.RegistrationStatus(ctx.Query("status"))
	regs, pagination, err := h.svc.MyRegistrations(ctx.Request.Context(), caller.ID, status, queryPage(ctx, domain.DefaultPageLimit))
	if err != nil {
		err = fmt.Errorf("v1.HandleMyRegistrations -> h.svc.MyRegistrations -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.RegistrationList{
		Registrations: regs,
		Pagination:    pagination,
	})
}

// HandleGetRegistration godoc
// @Summary      Get a registration
// @Description  Visible to its owner and to administrators.
// @Tags         registrations
// @Produce      json
// @Param        id   path      int  true  "registration id"
// @Success      200      {object}   response.Envelope{data=response.RegistrationResponse}
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /registrations/{id} [get]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleGetRegistration(ctx *gin.Context) {
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

	reg, err := h.svc.GetRegistration(ctx.Request.Context(), caller, id)
	if err != nil {
		if renderRegistrationErr(ctx, err, id) {
			return
		}
		err = fmt.Errorf("v1.HandleGetRegistration -> h.svc.GetRegistration -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.RegistrationResponse{Registration: reg})
}

// HandleCancel godoc
// @Summary      Cancel a registration
// @Description  Owners may cancel until the cutoff before the event starts.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        id        path      int                                true   "registration id"
// @Param        request   body      request.CancelRegistrationRequest  false  "request body"
// @Success      200      {object}   response.Envelope{data=response.RegistrationResponse}
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /registrations/{id}/cancel [put]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleCancel(ctx *gin.Context) {
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

	var req request.CancelRegistrationRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	reg, err := h.svc.Cancel(ctx.Request.Context(), caller, id, req.Reason)
	if err != nil {
		if renderRegistrationErr(ctx, err, id) {
			return
		}
		err = fmt.Errorf("v1.HandleCancel -> h.svc.Cancel -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "Registration cancelled successfully", response.RegistrationResponse{Registration: reg})
}

// HandleFeedback godoc
// @Summary      Submit feedback
// @Description  Only for attended registrations of events that accept feedback.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        id        path      int                      true  "registration id"
// @Param        request   body      request.FeedbackRequest  true  "request body"
// @Success      200      {object}   response.Envelope{data=response.RegistrationResponse}
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /registrations/{id}/feedback [put]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleFeedback(ctx *gin.Context) {
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

	var req request.FeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	reg, err := h.svc.SubmitFeedback(ctx.Request.Context(), caller, id, req.ToInput())
	if err != nil {
		if renderRegistrationErr(ctx, err, id) {
			return
		}
		err = fmt.Errorf("v1.HandleFeedback -> h.svc.SubmitFeedback -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.RenderMessage(ctx, http.StatusOK, "Feedback submitted successfully", response.RegistrationResponse{Registration: reg})
}

// HandleEventRegistrations godoc
// @Summary      Registrations of one event
// @Tags         registrations
// @Produce      json
// @Param        eventId  path      int     true   "event id"
// @Param        status   query     string  false  "registration status"
// @Param        page     query     int     false  "page number"
// @Param        limit    query     int     false  "page size, default 20"
// @Success      200      {object}   response.Envelope{data=response.RegistrationList}
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /registrations/event/{eventId} [get]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleEventRegistrations(ctx *gin.Context) {
	eventID, respErr := paramID(ctx, "eventId")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	status := domain.RegistrationStatus(ctx.Query("status"))
	result, err := h.svc.EventRegistrations(ctx.Request.Context(), eventID, status, queryPage(ctx, eventRegistrationsPageLimit))
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "id", eventID))
			return
		}
		err = fmt.Errorf("v1.HandleEventRegistrations -> h.svc.EventRegistrations -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, response.RegistrationList{
		Registrations: result.Registrations,
		Pagination:    result.Pagination,
		Stats:         &result.Stats,
	})
}

// HandleAttendance godoc
// @Summary      Check a registrant in or out
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        id        path      int                        true   "registration id"
// @Param        request   body      request.AttendanceRequest  false  "checkIn defaults to true"
// @Success      200      {object}   response.Envelope{data=response.RegistrationResponse}
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /registrations/{id}/attendance [put]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleAttendance(ctx *gin.Context) {
	id, respErr := paramID(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.AttendanceRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
	}

	reg, err := h.svc.MarkAttendance(ctx.Request.Context(), id, req.IsCheckIn(), req.Notes)
	if err != nil {
		if renderRegistrationErr(ctx, err, id) {
			return
		}
		err = fmt.Errorf("v1.HandleAttendance -> h.svc.MarkAttendance -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	message := "Checked in successfully"
	if !req.IsCheckIn() {
		message = "Checked out successfully"
	}
	response.RenderMessage(ctx, http.StatusOK, message, response.RegistrationResponse{Registration: reg})
}

// HandleAnalytics godoc
// @Summary      Registration analytics
// @Tags         registrations
// @Produce      json
// @Param        eventId    query     int     false  "limit to one event"
// @Param        startDate  query     string  false  "range start, default 30 days ago"
// @Param        endDate    query     string  false  "range end, default now"
// @Success      200      {object}   response.Envelope{data=domain.RegistrationAnalytics}
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /registrations/admin/analytics [get]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleAnalytics(ctx *gin.Context) {
	eventID := queryInt(ctx, "eventId", 0)
	if eventID < 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid eventId: %d", eventID)))
		return
	}

	from, respErr := queryTime(ctx, "startDate")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	to, respErr := queryTime(ctx, "endDate")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	analytics, err := h.svc.Analytics(ctx.Request.Context(), uint(eventID), from, to)
	if err != nil {
		err = fmt.Errorf("v1.HandleAnalytics -> h.svc.Analytics -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.Render(ctx, http.StatusOK, analytics)
}

// HandleBulkStatus godoc
// @Summary      Set the status of many registrations
// @Description  Administrative override. Event counters are recomputed afterwards.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        request   body      request.BulkStatusRequest  true  "request body"
// @Success      200      {object}   response.Envelope{data=response.BulkUpdate}
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /registrations/admin/bulk-status [put]
// @Security     BearerAuth
func (h *RegistrationHandler) HandleBulkStatus(ctx *gin.Context) {
	var req request.BulkStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	changed, err := h.svc.BulkSetStatus(ctx.Request.Context(), req.RegistrationIDs, domain.RegistrationStatus(req.Status))
	if err != nil {
		if errors.Is(err, service.ErrEmptyBulkUpdate) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
		err = fmt.Errorf("v1.HandleBulkStatus -> h.svc.BulkSetStatus -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	response.RenderMessage(ctx, http.StatusOK, fmt.Sprintf("%d registrations updated", changed), response.BulkUpdate{ModifiedCount: changed})
}
