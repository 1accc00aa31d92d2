package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/service"
)

type RegisterForEventRequest struct {
	EventID          uint                   `json:"eventId"`
	RegistrationData map[string]interface{} `json:"registrationData"`
}

func (req *RegisterForEventRequest) Validate() error {
	return firstError(
		field("eventId", req.EventID, validation.Required),
	)
}

type CancelRegistrationRequest struct {
	Reason string `json:"reason"`
}

func (req *CancelRegistrationRequest) Validate() error {
	return firstError(
		field("reason", req.Reason, validation.Length(0, 500)),
	)
}

type FeedbackRequest struct {
	Rating    *int                   `json:"rating"`
	Comments  string                 `json:"comments"`
	Responses map[string]interface{} `json:"responses"`
}

// Validate checks shape only. The rating range is a registration rule.
func (req *FeedbackRequest) Validate() error {
	return firstError(
		field("comments", req.Comments, validation.Length(0, 1000)),
	)
}

func (req *FeedbackRequest) ToInput() service.FeedbackInput {
	return service.FeedbackInput{
		Rating:    req.Rating,
		Comments:  req.Comments,
		Responses: req.Responses,
	}
}

type AttendanceRequest struct {
	CheckIn *bool  `json:"checkIn"`
	Notes   string `json:"notes"`
}

// IsCheckIn defaults to a check-in when the body does not say.
func (req *AttendanceRequest) IsCheckIn() bool {
	return req.CheckIn == nil || *req.CheckIn
}

type BulkStatusRequest struct {
	RegistrationIDs []uint `json:"registrationIds"`
	Status          string `json:"status"`
}

func (req *BulkStatusRequest) Validate() error {
	return firstError(
		field("registrationIds", req.RegistrationIDs, validation.Required),
		field("status", domain.RegistrationStatus(req.Status), validation.Required, validation.In(domain.RegistrationStatuses...)),
	)
}
