package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/tourdesk/service-booking/internal/domain/auditlog"
)

// ListFilter narrows the admin list.
type ListFilter struct {
	Status   Status
	DateFrom string
	DateTo   string
}

// Repository defines the persistence contract for booking requests.
type Repository interface {
	// FindByID retrieves a booking request by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*BookingRequest, error)

	// FindByPhone retrieves a customer's requests, newest first.
	FindByPhone(ctx context.Context, phone string) ([]*BookingRequest, error)

	// FindByDateRange retrieves requests whose ISO date lies in [from, to].
	FindByDateRange(ctx context.Context, from, to string) ([]*BookingRequest, error)

	// List retrieves requests matching filter with pagination (admin).
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*BookingRequest, int64, error)

	// CountByStatus returns request counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// Save persists a new booking request.
	Save(ctx context.Context, b *BookingRequest) error

	// UpdateStatus writes b's new status and version only if the stored
	// version still equals expectedVersion, and appends entry in the same
	// unit of work. A lost race returns a conflict error and writes nothing.
	UpdateStatus(ctx context.Context, b *BookingRequest, expectedVersion int64, entry *auditlog.Entry) error
}
