package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
	StatusAttended  RegistrationStatus = "attended"
	StatusNoShow    RegistrationStatus = "no-show"
)

var RegistrationStatuses = []interface{}{StatusPending, StatusConfirmed, StatusCancelled, StatusAttended, StatusNoShow}

// CountedStatuses are the statuses that occupy a seat in the event counter.
var CountedStatuses = []RegistrationStatus{StatusConfirmed, StatusAttended}

func (s RegistrationStatus) Counted() bool {
	return s == StatusConfirmed || s == StatusAttended
}

type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not-required"
	PaymentPending     PaymentStatus = "pending"
	PaymentPaid        PaymentStatus = "paid"
	PaymentFailed      PaymentStatus = "failed"
	PaymentRefunded    PaymentStatus = "refunded"
)

const DefaultCancellationCutoff = 24 * time.Hour

var (
	ErrAlreadyCancelled      = errors.New("registration is already cancelled")
	ErrCancelAfterAttendance = errors.New("cannot cancel registration after attending the event")
	ErrCancellationDeadline  = errors.New("cannot cancel registration less than 24 hours before the event")
	ErrFeedbackNotAttended   = errors.New("feedback can only be submitted for attended events")
	ErrInvalidRating         = errors.New("rating must be between 1 and 5")
	ErrFeedbackDisabled      = errors.New("feedback is disabled for this event")
)

type PaymentDetails struct {
	TransactionID string     `json:"transactionId,omitempty"`
	Amount        float64    `json:"amount"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

type Attendance struct {
	CheckedIn    bool       `json:"checkedIn"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	CheckedOut   bool       `json:"checkedOut"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type Feedback struct {
	Rating      *int                   `json:"rating,omitempty"`
	Comments    string                 `json:"comments,omitempty"`
	Responses   map[string]interface{} `json:"responses,omitempty"`
	SubmittedAt *time.Time             `json:"submittedAt,omitempty"`
}

type NotificationFlags struct {
	ReminderSent24h  bool `json:"reminderSent24h"`
	ReminderSent1h   bool `json:"reminderSent1h"`
	ConfirmationSent bool `json:"confirmationSent"`
	CancellationSent bool `json:"cancellationSent"`
}

type RequestMetadata struct {
	Source             string     `json:"registrationSource"`
	IPAddress          string     `json:"ipAddress,omitempty"`
	UserAgent          string     `json:"userAgent,omitempty"`
	Referrer           string     `json:"referrer,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
}

type Certificate struct {
	Issued   bool       `json:"issued"`
	IssuedAt *time.Time `json:"issuedAt,omitempty"`
	URL      string     `json:"certificateUrl,omitempty"`
}

// EventSummary is the slice of an event embedded in registration listings.
type EventSummary struct {
	ID       uint        `json:"id"`
	Title    string      `json:"title"`
	Category Category    `json:"category,omitempty"`
	Status   EventStatus `json:"status,omitempty"`
	DateTime Schedule    `json:"dateTime"`
	Venue    string      `json:"venue,omitempty"`
}

type Registration struct {
	ID             uint                   `json:"id"`
	UserID         uint                   `json:"userId"`
	EventID        uint                   `json:"eventId"`
	Answers        map[string]interface{} `json:"registrationData"`
	Status         RegistrationStatus     `json:"status"`
	PaymentStatus  PaymentStatus          `json:"paymentStatus"`
	PaymentDetails PaymentDetails         `json:"paymentDetails"`
	Attendance     Attendance             `json:"attendance"`
	Feedback       Feedback               `json:"feedback"`
	Notifications  NotificationFlags      `json:"notifications"`
	Metadata       RequestMetadata        `json:"metadata"`
	Code           string                 `json:"qrCode"`
	Certificate    Certificate            `json:"certificate"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`

	User  *UserSummary  `json:"user,omitempty"`
	Event *EventSummary `json:"event,omitempty"`
}

// NewRegistration builds a confirmed registration for u on e. Payment is only
// expected when the event charges a fee.
func NewRegistration(userID uint, e Event, answers map[string]interface{}, meta RequestMetadata) Registration {
	r := Registration{
		UserID:        userID,
		EventID:       e.ID,
		Answers:       answers,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentNotRequired,
		Metadata:      meta,
		Code:          NewRegistrationCode(),
	}
	if r.Answers == nil {
		r.Answers = map[string]interface{}{}
	}
	if r.Metadata.Source == "" {
		r.Metadata.Source = "web"
	}
	if e.Registration.Fee > 0 {
		r.PaymentStatus = PaymentPending
		r.PaymentDetails.Amount = e.Registration.Fee
	}
	return r
}

func NewRegistrationCode() string {
	return "REG-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Cancel moves the registration to cancelled. It is refused once attended, and
// when fewer than cutoff remain before eventStart.
func (r *Registration) Cancel(now, eventStart time.Time, cutoff time.Duration, reason string) error {
	switch r.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusAttended:
		return ErrCancelAfterAttendance
	}

	if eventStart.Sub(now) < cutoff {
		return ErrCancellationDeadline
	}

	r.Status = StatusCancelled
	r.Metadata.CancellationReason = reason
	r.Metadata.CancelledAt = &now

	return nil
}

// MarkAttendance records a check-in or check-out. A check-in promotes a
// confirmed registration to attended; both statuses hold a seat.
func (r *Registration) MarkAttendance(now time.Time, checkIn bool, notes string) {
	if checkIn {
		r.Attendance.CheckedIn = true
		r.Attendance.CheckInTime = &now
		if r.Status == StatusConfirmed {
			r.Status = StatusAttended
		}
	} else {
		r.Attendance.CheckedOut = true
		r.Attendance.CheckOutTime = &now
	}

	if notes != "" {
		if r.Attendance.Notes != "" {
			r.Attendance.Notes += "\n" + notes
		} else {
			r.Attendance.Notes = notes
		}
	}
}

func (r *Registration) SubmitFeedback(now time.Time, rating *int, comments string, responses map[string]interface{}) error {
	if r.Status != StatusAttended {
		return ErrFeedbackNotAttended
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return invalid("rating", ErrInvalidRating)
	}

	r.Feedback = Feedback{
		Rating:      rating,
		Comments:    comments,
		Responses:   responses,
		SubmittedAt: &now,
	}

	return nil
}

// email shape accepted by the registration form; needs backtracking, hence regexp2.
var answerEmail = regexp2.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,})+$`, regexp2.None)

// ValidateAnswers checks submitted answers against the event's declared fields
// and returns them normalised to string, float64 or bool values.
func ValidateAnswers(fields []RegistrationField, answers map[string]interface{}) (map[string]interface{}, error) {
	declared := make(map[string]RegistrationField, len(fields))
	for _, f := range fields {
		declared[f.Name] = f
	}

	for name := range answers {
		if _, ok := declared[name]; !ok {
			return nil, invalid("registrationData."+name, errors.New("is not a field of this event"))
		}
	}

	out := make(map[string]interface{}, len(answers))
	for _, f := range fields {
		raw, present := answers[f.Name]
		if !present || isBlank(raw) {
			if f.Required {
				return nil, invalid("registrationData."+f.Name, errors.New("cannot be blank"))
			}
			continue
		}

		v, err := coerceAnswer(f, raw)
		if err != nil {
			return nil, invalid("registrationData."+f.Name, err)
		}
		out[f.Name] = v
	}

	return out, nil
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func coerceAnswer(f RegistrationField, raw interface{}) (interface{}, error) {
	switch f.Type {
	case FieldNumber:
		n, ok := raw.(float64)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, errors.New("must be a number")
		}
		return n, nil
	case FieldCheckbox:
		b, ok := raw.(bool)
		if !ok {
			return nil, errors.New("must be true or false")
		}
		return b, nil
	case FieldEmail:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("must be a string")
		}
		s = strings.TrimSpace(s)
		if match, _ := answerEmail.MatchString(s); !match {
			return nil, errors.New("must be a valid email address")
		}
		return s, nil
	case FieldSelect:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("must be a string")
		}
		for _, o := range f.Options {
			if o == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(f.Options, ", "))
	default:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("must be a string")
		}
		return s, nil
	}
}

// ValidateFeedbackResponses checks responses against the event's feedback
// questions, keyed by question text.
func ValidateFeedbackResponses(questions []FeedbackQuestion, responses map[string]interface{}) error {
	declared := make(map[string]FeedbackQuestion, len(questions))
	for _, q := range questions {
		declared[q.Question] = q
	}

	for key := range responses {
		if _, ok := declared[key]; !ok {
			return invalid("responses."+key, errors.New("is not a question of this event"))
		}
	}

	for _, q := range questions {
		raw, present := responses[q.Question]
		if !present || isBlank(raw) {
			if q.Required {
				return invalid("responses."+q.Question, errors.New("cannot be blank"))
			}
			continue
		}

		switch q.Type {
		case QuestionRating:
			n, ok := raw.(float64)
			if !ok || n < 1 || n > 5 || n != math.Trunc(n) {
				return invalid("responses."+q.Question, ErrInvalidRating)
			}
		case QuestionMultipleChoice:
			s, ok := raw.(string)
			if !ok || (len(q.Options) > 0 && !contains(q.Options, s)) {
				return invalid("responses."+q.Question, errors.New("must be one of the offered choices"))
			}
		default:
			if _, ok := raw.(string); !ok {
				return invalid("responses."+q.Question, errors.New("must be a string"))
			}
		}
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type RegistrationFilter struct {
	UserID  uint
	EventID uint
	Status  RegistrationStatus
	From    *time.Time
	To      *time.Time
	Page    Page
}

type StatusCount struct {
	Status   RegistrationStatus `json:"status"`
	Count    int64              `json:"count"`
	TotalFee float64            `json:"totalFee"`
}

type RegistrationStats struct {
	StatusCounts       []StatusCount `json:"statusCounts"`
	TotalRegistrations int64         `json:"totalRegistrations"`
	TotalRevenue       float64       `json:"totalRevenue"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type RegistrationAnalytics struct {
	Overview            RegistrationStats `json:"overview"`
	RecentRegistrations []Registration    `json:"recentRegistrations"`
	DateRange           DateRange         `json:"dateRange"`
}

// RegistrationSummary is what an event page shows a caller about their own registration.
type RegistrationSummary struct {
	ID            uint               `json:"id"`
	UserID        uint               `json:"userId"`
	EventID       uint               `json:"eventId"`
	Status        RegistrationStatus `json:"status"`
	PaymentStatus PaymentStatus      `json:"paymentStatus"`
	RegisteredAt  time.Time          `json:"registeredAt"`
	Attended      bool               `json:"attended"`
	Code          string             `json:"qrCode"`
}

func (r Registration) Summary() RegistrationSummary {
	return RegistrationSummary{
		ID:            r.ID,
		UserID:        r.UserID,
		EventID:       r.EventID,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		RegisteredAt:  r.CreatedAt,
		Attended:      r.Attendance.CheckedIn,
		Code:          r.Code,
	}
}
