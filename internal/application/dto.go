package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/tourdesk/service-booking/internal/domain/auditlog"
	bookingDomain "github.com/tourdesk/service-booking/internal/domain/booking"
	"github.com/tourdesk/service-booking/internal/domain/calendar"
)

// CreateBookingRequestInput holds the data a customer submits.
type CreateBookingRequestInput struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	CustomerName    string    `json:"customer_name" binding:"required"`
	CustomerPhone   string    `json:"customer_phone" binding:"required"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerChatID  string    `json:"customer_chat_id"`
	Date            string    `json:"date" binding:"required"`
	AdultCount      int       `json:"adult_count"`
	ChildCount      int       `json:"child_count"`
	SpecialRequests string    `json:"special_requests"`
	PickupLocation  string    `json:"pickup_location"`
}

func (in CreateBookingRequestInput) params() bookingDomain.NewRequestParams {
	return bookingDomain.NewRequestParams{
		ProductID: in.ProductID,
		Customer: bookingDomain.CustomerInfo{
			Name:   in.CustomerName,
			Phone:  in.CustomerPhone,
			Email:  in.CustomerEmail,
			ChatID: in.CustomerChatID,
		},
		Date:            in.Date,
		AdultCount:      in.AdultCount,
		ChildCount:      in.ChildCount,
		SpecialRequests: in.SpecialRequests,
		PickupLocation:  in.PickupLocation,
	}
}

// UpdateStatusCommand asks for one status transition. ExpectedVersion is the
// version the caller last saw.
type UpdateStatusCommand struct {
	ID              uuid.UUID
	NewStatus       string
	Actor           bookingDomain.Actor
	ExpectedVersion int64
	Reason          string
}

// BookingRequestDTO is the response representation of a booking request.
type BookingRequestDTO struct {
	ID                 uuid.UUID `json:"id"`
	ProductID          uuid.UUID `json:"product_id"`
	CustomerName       string    `json:"customer_name"`
	CustomerPhone      string    `json:"customer_phone"`
	CustomerEmail      string    `json:"customer_email,omitempty"`
	CustomerChatID     string    `json:"customer_chat_id,omitempty"`
	Date               string    `json:"date"`
	AdultCount         int       `json:"adult_count"`
	ChildCount         int       `json:"child_count"`
	TotalAmount        int64     `json:"total_amount"`
	Status             string    `json:"status"`
	StatusLabel        string    `json:"status_label"`
	SpecialRequests    string    `json:"special_requests,omitempty"`
	PickupLocation     string    `json:"pickup_location,omitempty"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RequestLogDTO is the response representation of an audit entry.
type RequestLogDTO struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"request_id"`
	Action    string    `json:"action"`
	Notes     string    `json:"notes"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingStatsDTO holds request counts for the admin dashboard.
type BookingStatsDTO struct {
	TotalRequests int64            `json:"total_requests"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// CalendarBookingDTO is a booking as shown inside a calendar cell.
type CalendarBookingDTO struct {
	ID           uuid.UUID `json:"id"`
	CustomerName string    `json:"customer_name"`
	Status       string    `json:"status"`
	StatusLabel  string    `json:"status_label"`
	AdultCount   int       `json:"adult_count"`
	ChildCount   int       `json:"child_count"`
}

// CalendarDayDTO is one grid cell.
type CalendarDayDTO struct {
	Date           string               `json:"date"`
	IsCurrentMonth bool                 `json:"is_current_month"`
	Bookings       []CalendarBookingDTO `json:"bookings"`
}

// CalendarDTO is the month grid plus its stats.
type CalendarDTO struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"`
	Days       []CalendarDayDTO `json:"days"`
	MonthStats MonthStatsDTO    `json:"month_stats"`
}

// MonthStatsDTO counts the month's bookings.
type MonthStatsDTO struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// --- Helpers ---

func toBookingRequestDTO(b *bookingDomain.BookingRequest) BookingRequestDTO {
	c := b.Customer()
	return BookingRequestDTO{
		ID:                 b.ID(),
		ProductID:          b.ProductID(),
		CustomerName:       c.Name,
		CustomerPhone:      c.Phone,
		CustomerEmail:      c.Email,
		CustomerChatID:     c.ChatID,
		Date:               b.Date(),
		AdultCount:         b.AdultCount(),
		ChildCount:         b.ChildCount(),
		TotalAmount:        b.TotalAmount(),
		Status:             string(b.Status()),
		StatusLabel:        b.Status().LabelKO(),
		SpecialRequests:    b.SpecialRequests(),
		PickupLocation:     b.PickupLocation(),
		CancellationReason: b.CancellationReason(),
		Version:            b.Version(),
		CreatedAt:          b.CreatedAt(),
		UpdatedAt:          b.UpdatedAt(),
	}
}

func toBookingRequestDTOs(requests []*bookingDomain.BookingRequest) []BookingRequestDTO {
	dtos := make([]BookingRequestDTO, len(requests))
	for i, b := range requests {
		dtos[i] = toBookingRequestDTO(b)
	}
	return dtos
}

func toRequestLogDTO(e *auditlog.Entry) RequestLogDTO {
	return RequestLogDTO{
		ID:        e.ID(),
		RequestID: e.RequestID(),
		Action:    string(e.Action()),
		Notes:     e.Notes(),
		Actor:     e.Actor(),
		CreatedAt: e.CreatedAt(),
	}
}

// ToCalendarDTO flattens a calendar for JSON.
func ToCalendarDTO(cal *calendar.Calendar) CalendarDTO {
	days := make([]CalendarDayDTO, len(cal.Days))
	for i, d := range cal.Days {
		bookings := make([]CalendarBookingDTO, len(d.Bookings))
		for j, b := range d.Bookings {
			bookings[j] = CalendarBookingDTO{
				ID:           b.ID(),
				CustomerName: b.Customer().Name,
				Status:       string(b.Status()),
				StatusLabel:  b.Status().LabelKO(),
				AdultCount:   b.AdultCount(),
				ChildCount:   b.ChildCount(),
			}
		}
		days[i] = CalendarDayDTO{Date: d.Date, IsCurrentMonth: d.IsCurrentMonth, Bookings: bookings}
	}

	byStatus := make(map[string]int, len(cal.MonthStats.ByStatus))
	for s, n := range cal.MonthStats.ByStatus {
		byStatus[string(s)] = n
	}

	return CalendarDTO{
		Year:       cal.Year,
		Month:      int(cal.Month),
		Days:       days,
		MonthStats: MonthStatsDTO{Total: cal.MonthStats.Total, ByStatus: byStatus},
	}
}
