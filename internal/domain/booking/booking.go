package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// DateLayout is the ISO calendar date format used for tour dates. Dates are
// kept as strings end to end so no timezone conversion can shift a day.
const DateLayout = "2006-01-02"

// CustomerInfo identifies the customer who placed the request.
type CustomerInfo struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
}

// Contact returns the most direct channel for reaching the customer.
func (c CustomerInfo) Contact() string {
	switch {
	case c.ChatID != "":
		return "chat:" + c.ChatID
	case c.Email != "":
		return "email:" + c.Email
	default:
		return "phone:" + c.Phone
	}
}

// NewRequestParams is the customer input for a booking request.
type NewRequestParams struct {
	ProductID       uuid.UUID
	Customer        CustomerInfo
	Date            string
	AdultCount      int
	ChildCount      int
	SpecialRequests string
	PickupLocation  string
}

// Validate checks the input without touching any store.
func (p *NewRequestParams) Validate() error {
	if p.ProductID == uuid.Nil {
		return domain.NewValidationError("product ID is required")
	}
	if strings.TrimSpace(p.Customer.Name) == "" {
		return domain.NewValidationError("customer name is required")
	}
	if NormalizePhone(p.Customer.Phone) == "" {
		return domain.NewValidationError("customer phone is required")
	}
	if _, err := ParseDate(p.Date); err != nil {
		return err
	}
	if p.AdultCount < 1 {
		return domain.NewValidationError("at least one adult is required")
	}
	if p.ChildCount < 0 {
		return domain.NewValidationError("child count cannot be negative")
	}
	return nil
}

// BookingRequest is the aggregate root for a customer's tour reservation.
type BookingRequest struct {
	id                 uuid.UUID
	productID          uuid.UUID
	customer           CustomerInfo
	date               string
	adultCount         int
	childCount         int
	totalAmount        int64
	status             Status
	specialRequests    string
	pickupLocation     string
	cancellationReason string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingRequest creates a request with status=new and version=1.
// totalAmount is fixed here and never recomputed.
func NewBookingRequest(p NewRequestParams, totalAmount int64, now time.Time) (*BookingRequest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if totalAmount < 0 {
		return nil, domain.NewValidationError("total amount cannot be negative")
	}

	now = now.UTC()
	customer := p.Customer
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = NormalizePhone(customer.Phone)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.ChatID = strings.TrimSpace(customer.ChatID)

	return &BookingRequest{
		id:              uuid.New(),
		productID:       p.ProductID,
		customer:        customer,
		date:            p.Date,
		adultCount:      p.AdultCount,
		childCount:      p.ChildCount,
		totalAmount:     totalAmount,
		status:          StatusNew,
		specialRequests: strings.TrimSpace(p.SpecialRequests),
		pickupLocation:  strings.TrimSpace(p.PickupLocation),
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructBookingRequest rebuilds a BookingRequest from persistence data (no validation).
func ReconstructBookingRequest(
	id uuid.UUID,
	productID uuid.UUID,
	customer CustomerInfo,
	date string,
	adultCount int,
	childCount int,
	totalAmount int64,
	status Status,
	specialRequests string,
	pickupLocation string,
	cancellationReason string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *BookingRequest {
	return &BookingRequest{
		id:                 id,
		productID:          productID,
		customer:           customer,
		date:               date,
		adultCount:         adultCount,
		childCount:         childCount,
		totalAmount:        totalAmount,
		status:             status,
		specialRequests:    specialRequests,
		pickupLocation:     pickupLocation,
		cancellationReason: cancellationReason,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// --- Getters ---

func (b *BookingRequest) ID() uuid.UUID              { return b.id }
func (b *BookingRequest) ProductID() uuid.UUID       { return b.productID }
func (b *BookingRequest) Customer() CustomerInfo     { return b.customer }
func (b *BookingRequest) Date() string               { return b.date }
func (b *BookingRequest) AdultCount() int            { return b.adultCount }
func (b *BookingRequest) ChildCount() int            { return b.childCount }
func (b *BookingRequest) TotalAmount() int64         { return b.totalAmount }
func (b *BookingRequest) Status() Status             { return b.status }
func (b *BookingRequest) SpecialRequests() string    { return b.specialRequests }
func (b *BookingRequest) PickupLocation() string     { return b.pickupLocation }
func (b *BookingRequest) CancellationReason() string { return b.cancellationReason }

// Version returns the entity version for optimistic locking.
func (b *BookingRequest) Version() int64 { return b.version }

func (b *BookingRequest) CreatedAt() time.Time { return b.createdAt }
func (b *BookingRequest) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// TransitionTo moves the request to target on behalf of actor, bumping the
// version. On error the aggregate is left untouched.
func (b *BookingRequest) TransitionTo(target Status, actor Actor, reason string, now time.Time) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if err := CheckTransition(b.status, target, actor.Role, reason); err != nil {
		return err
	}

	b.status = target
	if target == StatusCancelled {
		b.cancellationReason = strings.TrimSpace(reason)
	}
	b.version++
	b.updatedAt = now.UTC()
	return nil
}

// BelongsTo reports whether phone identifies this request's customer.
func (b *BookingRequest) BelongsTo(phone string) bool {
	p := NormalizePhone(phone)
	return p != "" && p == b.customer.Phone
}

// Clone returns an independent copy.
func (b *BookingRequest) Clone() *BookingRequest {
	c := *b
	return &c
}

// ParseDate validates an ISO YYYY-MM-DD date and returns it unchanged.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return "", domain.NewValidationError(fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return s, nil
}

// NormalizePhone keeps digits and a leading '+', so "010-1234-5678" and
// "01012345678" identify the same customer.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var sb strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '+' && i == 0:
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if out == "+" {
		return ""
	}
	return out
}
