package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/repository/dao"
)

var (
	ErrRegistrationNotFound = dao.ErrRegistrationNotFound
	ErrAlreadyRegistered    = dao.ErrAlreadyRegistered
	ErrRegistrationChanged  = dao.ErrRegistrationChanged
	ErrEventFull            = dao.ErrEventFull
)

type RegistrationDAO interface {
	Insert(ctx context.Context, reg dao.Registration, holdsSeat bool) (dao.Registration, error)
	Transition(ctx context.Context, reg dao.Registration, prevStatus string, seatDelta int) (dao.Registration, error)
	BulkSetStatus(ctx context.Context, ids []uint, status string, seatStatuses []string) (int64, error)
	Reconcile(ctx context.Context, seatStatuses []string) (int64, error)
	FindByID(ctx context.Context, id uint) (dao.Registration, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID uint) (dao.Registration, error)
	List(ctx context.Context, q dao.RegistrationQuery) ([]dao.Registration, int64, error)
	CountByStatus(ctx context.Context, eventID uint) ([]dao.RegistrationStatusCount, error)
}

type RegistrationRepository struct {
	dao RegistrationDAO
}

func NewRegistrationRepository(dao RegistrationDAO) *RegistrationRepository {
	return &RegistrationRepository{
		dao: dao,
	}
}

// Create stores reg and claims a seat for it when its status holds one.
func (r *RegistrationRepository) Create(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	created, err := r.dao.Insert(ctx, registrationDomainToDao(reg), reg.Status.Counted())
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return registrationDaoToDomain(created), nil
}

// Save persists reg, whose stored status was prev, and moves the event counter
// when the change crosses between seat-holding and non seat-holding statuses.
func (r *RegistrationRepository) Save(ctx context.Context, reg domain.Registration, prev domain.RegistrationStatus) (domain.Registration, error) {
	delta := 0
	switch {
	case reg.Status.Counted() && !prev.Counted():
		delta = 1
	case !reg.Status.Counted() && prev.Counted():
		delta = -1
	}

	saved, err := r.dao.Transition(ctx, registrationDomainToDao(reg), string(prev), delta)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.Transition -> %w", err)
	}

	return registrationDaoToDomain(saved), nil
}

func (r *RegistrationRepository) BulkSetStatus(ctx context.Context, ids []uint, status domain.RegistrationStatus) (int64, error) {
	changed, err := r.dao.BulkSetStatus(ctx, ids, string(status), seatStatuses())
	if err != nil {
		return 0, fmt.Errorf("r.dao.BulkSetStatus -> %w", err)
	}

	return changed, nil
}

func (r *RegistrationRepository) Reconcile(ctx context.Context) (int64, error) {
	drifted, err := r.dao.Reconcile(ctx, seatStatuses())
	if err != nil {
		return 0, fmt.Errorf("r.dao.Reconcile -> %w", err)
	}

	return drifted, nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id uint) (domain.Registration, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return registrationDaoToDomain(found), nil
}

func (r *RegistrationRepository) FindByUserAndEvent(ctx context.Context, userID, eventID uint) (domain.Registration, error) {
	found, err := r.dao.FindByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByUserAndEvent -> %w", err)
	}

	return registrationDaoToDomain(found), nil
}

func (r *RegistrationRepository) List(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int64, error) {
	found, total, err := r.dao.List(ctx, dao.RegistrationQuery{
		UserID:        filter.UserID,
		EventID:       filter.EventID,
		Status:        string(filter.Status),
		CreatedFrom:   utcPtr(filter.From),
		CreatedBefore: utcPtr(filter.To),
		Offset:        filter.Page.Offset(),
		Limit:         filter.Page.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.List -> %w", err)
	}

	regs := make([]domain.Registration, 0, len(found))
	for _, reg := range found {
		regs = append(regs, registrationDaoToDomain(reg))
	}

	return regs, total, nil
}

// Stats aggregates registrations of one event, or of all events when eventID is 0.
func (r *RegistrationRepository) Stats(ctx context.Context, eventID uint) (domain.RegistrationStats, error) {
	counts, err := r.dao.CountByStatus(ctx, eventID)
	if err != nil {
		return domain.RegistrationStats{}, fmt.Errorf("r.dao.CountByStatus -> %w", err)
	}

	stats := domain.RegistrationStats{StatusCounts: make([]domain.StatusCount, 0, len(counts))}
	for _, c := range counts {
		stats.StatusCounts = append(stats.StatusCounts, domain.StatusCount{
			Status:   domain.RegistrationStatus(c.Status),
			Count:    c.Count,
			TotalFee: c.TotalFee,
		})
		stats.TotalRegistrations += c.Count
		stats.TotalRevenue += c.TotalFee
	}

	return stats, nil
}

func seatStatuses() []string {
	out := make([]string, 0, len(domain.CountedStatuses))
	for _, s := range domain.CountedStatuses {
		out = append(out, string(s))
	}
	return out
}

func registrationDomainToDao(r domain.Registration) dao.Registration {
	return dao.Registration{
		ID:            r.ID,
		UserID:        r.UserID,
		EventID:       r.EventID,
		Answers:       datatypes.JSONMap(r.Answers),
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		Payment: dao.PaymentDetails{
			TransactionID: r.PaymentDetails.TransactionID,
			Amount:        r.PaymentDetails.Amount,
			Method:        r.PaymentDetails.PaymentMethod,
			PaidAt:        utcPtr(r.PaymentDetails.PaidAt),
		},
		Attendance: dao.Attendance{
			CheckedIn:    r.Attendance.CheckedIn,
			CheckInTime:  utcPtr(r.Attendance.CheckInTime),
			CheckedOut:   r.Attendance.CheckedOut,
			CheckOutTime: utcPtr(r.Attendance.CheckOutTime),
			Notes:        r.Attendance.Notes,
		},
		Feedback: dao.Feedback{
			Rating:      r.Feedback.Rating,
			Comments:    r.Feedback.Comments,
			Responses:   datatypes.JSONMap(r.Feedback.Responses),
			SubmittedAt: utcPtr(r.Feedback.SubmittedAt),
		},
		Metadata: dao.RequestMetadata{
			Source:             r.Metadata.Source,
			IPAddress:          r.Metadata.IPAddress,
			UserAgent:          r.Metadata.UserAgent,
			Referrer:           r.Metadata.Referrer,
			CancellationReason: r.Metadata.CancellationReason,
			CancelledAt:        utcPtr(r.Metadata.CancelledAt),
		},
		Certificate: dao.Certificate{
			Issued:   r.Certificate.Issued,
			IssuedAt: utcPtr(r.Certificate.IssuedAt),
			URL:      r.Certificate.URL,
		},
		Notifications: datatypes.NewJSONType(dao.NotificationFlags(r.Notifications)),
		Code:          r.Code,
	}
}

func registrationDaoToDomain(r dao.Registration) domain.Registration {
	reg := domain.Registration{
		ID:            r.ID,
		UserID:        r.UserID,
		EventID:       r.EventID,
		Answers:       map[string]interface{}(r.Answers),
		Status:        domain.RegistrationStatus(r.Status),
		PaymentStatus: domain.PaymentStatus(r.PaymentStatus),
		PaymentDetails: domain.PaymentDetails{
			TransactionID: r.Payment.TransactionID,
			Amount:        r.Payment.Amount,
			PaymentMethod: r.Payment.Method,
			PaidAt:        r.Payment.PaidAt,
		},
		Attendance: domain.Attendance{
			CheckedIn:    r.Attendance.CheckedIn,
			CheckInTime:  r.Attendance.CheckInTime,
			CheckedOut:   r.Attendance.CheckedOut,
			CheckOutTime: r.Attendance.CheckOutTime,
			Notes:        r.Attendance.Notes,
		},
		Feedback: domain.Feedback{
			Rating:      r.Feedback.Rating,
			Comments:    r.Feedback.Comments,
			Responses:   map[string]interface{}(r.Feedback.Responses),
			SubmittedAt: r.Feedback.SubmittedAt,
		},
		Notifications: domain.NotificationFlags(r.Notifications.Data()),
		Metadata: domain.RequestMetadata{
			Source:             r.Metadata.Source,
			IPAddress:          r.Metadata.IPAddress,
			UserAgent:          r.Metadata.UserAgent,
			Referrer:           r.Metadata.Referrer,
			CancellationReason: r.Metadata.CancellationReason,
			CancelledAt:        r.Metadata.CancelledAt,
		},
		Code: r.Code,
		Certificate: domain.Certificate{
			Issued:   r.Certificate.Issued,
			IssuedAt: r.Certificate.IssuedAt,
			URL:      r.Certificate.URL,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if reg.Answers == nil {
		reg.Answers = map[string]interface{}{}
	}

	if r.User.ID != 0 {
		sid := ""
		if r.User.StudentID != nil {
			sid = *r.User.StudentID
		}
		reg.User = &domain.UserSummary{
			ID:         r.User.ID,
			Name:       r.User.Name,
			Email:      r.User.Email,
			StudentID:  sid,
			Department: r.User.Department,
			Phone:      r.User.Phone,
		}
	}

	if r.Event.ID != 0 {
		reg.Event = &domain.EventSummary{
			ID:       r.Event.ID,
			Title:    r.Event.Title,
			Category: domain.Category(r.Event.Category),
			Status:   domain.EventStatus(r.Event.Status),
			DateTime: domain.Schedule{
				Start:                r.Event.StartAt,
				End:                  r.Event.EndAt,
				RegistrationDeadline: r.Event.RegistrationDeadline,
			},
			Venue: r.Event.Venue.Name,
		}
	}

	return reg
}
