package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/domain/auditlog"
	bookingDomain "github.com/tourdesk/service-booking/internal/domain/booking"
)

// BookingRequestModel is the GORM model for the booking_requests table.
type BookingRequestModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID          uuid.UUID `gorm:"type:uuid;index;not null"`
	CustomerName       string    `gorm:"not null;size:100"`
	CustomerPhone      string    `gorm:"not null;size:20;index"`
	CustomerEmail      string    `gorm:"size:200"`
	CustomerChatID     string    `gorm:"size:64"`
	TourDate           string    `gorm:"not null;size:10;index"`
	AdultCount         int       `gorm:"not null"`
	ChildCount         int       `gorm:"not null;default:0"`
	TotalAmount        int64     `gorm:"not null"`
	Status             string    `gorm:"not null;size:30;index"`
	SpecialRequests    string    `gorm:"size:1000"`
	PickupLocation     string    `gorm:"size:255"`
	CancellationReason string    `gorm:"size:500"`
	Version            int64     `gorm:"not null;default:1"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingRequestModel) TableName() string {
	return "booking_requests"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

var _ bookingDomain.Repository = (*GormBookingRepository)(nil)

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking request by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.BookingRequest, error) {
	var model BookingRequestModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("BookingRequest", id.String())
		}
		return nil, fmt.Errorf("failed to find booking request by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByPhone retrieves every request placed with phone, newest first.
func (r *GormBookingRepository) FindByPhone(ctx context.Context, phone string) ([]*bookingDomain.BookingRequest, error) {
	var models []BookingRequestModel
	if err := r.db.WithContext(ctx).
		Where("customer_phone = ?", phone).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find booking requests by phone: %w", err)
	}
	return toDomainBookings(models)
}

// FindByDateRange retrieves requests whose tour date lies in [from, to].
// ISO dates compare lexically, so the range is a plain string comparison.
func (r *GormBookingRepository) FindByDateRange(ctx context.Context, from, to string) ([]*bookingDomain.BookingRequest, error) {
	var models []BookingRequestModel
	if err := r.db.WithContext(ctx).
		Where("tour_date >= ? AND tour_date <= ?", from, to).
		Order("tour_date ASC").
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find booking requests by date range: %w", err)
	}
	return toDomainBookings(models)
}

// List retrieves requests matching filter with pagination (admin).
func (r *GormBookingRepository) List(ctx context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.BookingRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&BookingRequestModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.DateFrom != "" {
		query = query.Where("tour_date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		query = query.Where("tour_date <= ?", filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count booking requests: %w", err)
	}

	var models []BookingRequestModel
	offset := (page - 1) * limit
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list booking requests: %w", err)
	}

	requests, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// CountByStatus returns request counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[bookingDomain.Status]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingRequestModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[bookingDomain.Status]int64, len(bookingDomain.AllStatuses))
	for _, s := range bookingDomain.AllStatuses {
		counts[s] = 0
	}
	for _, sc := range results {
		counts[bookingDomain.Status(sc.Status)] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking request.
func (r *GormBookingRepository) Save(ctx context.Context, b *bookingDomain.BookingRequest) error {
	model := toBookingModel(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking request: %w", err)
	}
	return nil
}

// UpdateStatus writes the new status with optimistic locking and appends the
// audit entry in the same transaction. Either both land or neither does.
func (r *GormBookingRepository) UpdateStatus(ctx context.Context, b *bookingDomain.BookingRequest, expectedVersion int64, entry *auditlog.Entry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&BookingRequestModel{}).
			Where("id = ? AND version = ?", b.ID(), expectedVersion).
			Updates(map[string]interface{}{
				"status":              string(b.Status()),
				"cancellation_reason": b.CancellationReason(),
				"version":             b.Version(),
				"updated_at":          b.UpdatedAt(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update booking request status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewConflictError("booking request was modified by another transaction")
		}

		if entry != nil {
			if err := tx.Create(toLogModel(entry)).Error; err != nil {
				return fmt.Errorf("failed to append request log: %w", err)
			}
		}
		return nil
	})
}

// --- Conversion Helpers ---

func toBookingModel(b *bookingDomain.BookingRequest) *BookingRequestModel {
	c := b.Customer()
	return &BookingRequestModel{
		ID:                 b.ID(),
		ProductID:          b.ProductID(),
		CustomerName:       c.Name,
		CustomerPhone:      c.Phone,
		CustomerEmail:      c.Email,
		CustomerChatID:     c.ChatID,
		TourDate:           b.Date(),
		AdultCount:         b.AdultCount(),
		ChildCount:         b.ChildCount(),
		TotalAmount:        b.TotalAmount(),
		Status:             string(b.Status()),
		SpecialRequests:    b.SpecialRequests(),
		PickupLocation:     b.PickupLocation(),
		CancellationReason: b.CancellationReason(),
		Version:            b.Version(),
		CreatedAt:          b.CreatedAt(),
		UpdatedAt:          b.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingRequestModel) (*bookingDomain.BookingRequest, error) {
	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBookingRequest(
		m.ID,
		m.ProductID,
		bookingDomain.CustomerInfo{
			Name:   m.CustomerName,
			Phone:  m.CustomerPhone,
			Email:  m.CustomerEmail,
			ChatID: m.CustomerChatID,
		},
		m.TourDate,
		m.AdultCount,
		m.ChildCount,
		m.TotalAmount,
		status,
		m.SpecialRequests,
		m.PickupLocation,
		m.CancellationReason,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingRequestModel) ([]*bookingDomain.BookingRequest, error) {
	requests := make([]*bookingDomain.BookingRequest, len(models))
	for i := range models {
		b, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		requests[i] = b
	}
	return requests, nil
}
