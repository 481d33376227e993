package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/domain/auditlog"
	bookingDomain "github.com/tourdesk/service-booking/internal/domain/booking"
	"github.com/tourdesk/service-booking/internal/domain/product"
	"github.com/tourdesk/service-booking/internal/metrics"
	"github.com/tourdesk/service-booking/internal/notification"
	"github.com/tourdesk/service-booking/internal/realtime"
)

// paymentCaptureAttempts bounds how often a payment event re-reads the
// request after losing a version race.
const paymentCaptureAttempts = 3

// BookingService is the application service orchestrating booking request
// use cases. It is the only writer of request status.
type BookingService struct {
	repo      bookingDomain.Repository
	logs      auditlog.Store
	prices    product.PriceLookup
	pricing   bookingDomain.PricingStrategy
	publisher realtime.Publisher
	notifier  notification.Notifier
	logger    *zap.Logger

	retry retryPolicy
	now   func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.Repository,
	logs auditlog.Store,
	prices product.PriceLookup,
	pricing bookingDomain.PricingStrategy,
	publisher realtime.Publisher,
	notifier notification.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		logs:      logs,
		prices:    prices,
		pricing:   pricing,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		retry:     defaultRetryPolicy,
		now:       time.Now,
	}
}

// CreateBookingRequest validates the input, prices it from the catalog and
// stores a new request in status new.
func (s *BookingService) CreateBookingRequest(ctx context.Context, in CreateBookingRequestInput) (*BookingRequestDTO, error) {
	params := in.params()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	prices, err := s.prices.GetUnitPrices(ctx, params.ProductID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown product: %s", params.ProductID))
		}
		return nil, fmt.Errorf("failed to look up product prices: %w", err)
	}

	total, err := s.pricing.Calculate(bookingDomain.PricingParams{
		AdultCount: params.AdultCount,
		ChildCount: params.ChildCount,
		Prices:     prices,
	})
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("pricing error: %v", err))
	}

	b, err := bookingDomain.NewBookingRequest(params, total, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save booking request: %w", err)
	}
	metrics.IncRequestCreated()

	s.notify(ctx, notification.NewEvent(notification.EventCreated, b, s.now()))

	result := toBookingRequestDTO(b)
	return &result, nil
}

// UpdateStatus moves a request to a new status on behalf of cmd.Actor. The
// write succeeds only if the stored version still equals cmd.ExpectedVersion;
// the status change and its audit entry are committed together.
func (s *BookingService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*BookingRequestDTO, error) {
	if cmd.ID == uuid.Nil {
		return nil, domain.NewValidationError("booking request ID is required")
	}
	target := bookingDomain.Status(cmd.NewStatus)
	if !target.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", cmd.NewStatus))
	}
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	if cmd.ExpectedVersion < 1 {
		return nil, domain.NewValidationError("expected version is required")
	}

	b, err := s.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if b.Version() != cmd.ExpectedVersion {
		metrics.IncVersionConflict()
		return nil, domain.NewConflictError(fmt.Sprintf(
			"booking request %s is at version %d, not %d", cmd.ID, b.Version(), cmd.ExpectedVersion))
	}

	from := b.Status()
	now := s.now()
	if err := b.TransitionTo(target, cmd.Actor, cmd.Reason, now); err != nil {
		return nil, err
	}

	entry, err := auditlog.NewStatusChange(b.ID(), string(from), string(target), cmd.Reason, cmd.Actor.String(), now)
	if err != nil {
		return nil, err
	}

	ambiguous := false
	err = s.retry.do(ctx, func() error {
		err := s.repo.UpdateStatus(ctx, b, cmd.ExpectedVersion, entry)
		if err != nil && !domain.IsDomain(err) {
			ambiguous = true
		}
		return err
	})
	// A conflict after an infrastructure error may be our own earlier commit.
	if err != nil && ambiguous && domain.IsConflict(err) && s.committed(ctx, b.ID(), cmd.ExpectedVersion, entry.ID()) {
		s.logger.Warn("status write committed despite driver error",
			zap.String("booking_request_id", b.ID().String()),
			zap.Int64("version", b.Version()),
		)
		err = nil
	}
	if err != nil {
		if domain.IsConflict(err) {
			metrics.IncVersionConflict()
		}
		return nil, err
	}

	metrics.IncStatusTransition(string(from), string(target), string(cmd.Actor.Role))
	s.logger.Info("booking request status changed",
		zap.String("booking_request_id", b.ID().String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", cmd.Actor.String()),
		zap.Int64("version", b.Version()),
	)

	s.publishStatus(ctx, b)

	event := notification.NewEvent(notification.EventStatusChanged, b, now)
	event.PreviousStatus = from
	event.Reason = strings.TrimSpace(cmd.Reason)
	s.notify(ctx, event)

	result := toBookingRequestDTO(b)
	return &result, nil
}

// committed reports whether a status write that returned an error landed
// anyway: the stored version moved by exactly one and its audit entry exists.
func (s *BookingService) committed(ctx context.Context, id uuid.UUID, expectedVersion int64, entryID uuid.UUID) bool {
	stored, err := s.repo.FindByID(ctx, id)
	if err != nil || stored.Version() != expectedVersion+1 {
		return false
	}
	entries, err := s.logs.ListByRequest(ctx, id, auditlog.ActionStatusChange)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.ID() == entryID {
			return true
		}
	}
	return false
}

// AddMemo appends a staff note to a request's log. Status and version are untouched.
func (s *BookingService) AddMemo(ctx context.Context, id uuid.UUID, actor bookingDomain.Actor, notes string) (*RequestLogDTO, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, domain.NewValidationError("memo notes are required")
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	entry, err := auditlog.NewMemo(id, notes, actor.String(), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, err
	}

	result := toRequestLogDTO(entry)
	return &result, nil
}

// ListByPhone returns a customer's requests, newest first.
func (s *BookingService) ListByPhone(ctx context.Context, phone string) ([]BookingRequestDTO, error) {
	normalized := bookingDomain.NormalizePhone(phone)
	if normalized == "" {
		return nil, domain.NewValidationError("phone is required")
	}

	requests, err := s.repo.FindByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return toBookingRequestDTOs(requests), nil
}

// GetBookingRequest retrieves a single request by ID.
func (s *BookingService) GetBookingRequest(ctx context.Context, id uuid.UUID) (*BookingRequestDTO, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toBookingRequestDTO(b)
	return &result, nil
}

// GetForCustomer retrieves a request only if phone matches its customer.
// A mismatch reports not found so other customers' requests stay hidden.
func (s *BookingService) GetForCustomer(ctx context.Context, id uuid.UUID, phone string) (*BookingRequestDTO, error) {
	b, err := s.findOwned(ctx, id, phone)
	if err != nil {
		return nil, err
	}
	result := toBookingRequestDTO(b)
	return &result, nil
}

// ListHistory returns a request's audit trail oldest first, optionally
// limited to some actions.
func (s *BookingService) ListHistory(ctx context.Context, id uuid.UUID, actions ...auditlog.Action) ([]RequestLogDTO, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.logs.ListByRequest(ctx, id, actions...)
	if err != nil {
		return nil, err
	}

	dtos := make([]RequestLogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toRequestLogDTO(e)
	}
	return dtos, nil
}

// CancelByCustomer lets a customer cancel their own request.
func (s *BookingService) CancelByCustomer(ctx context.Context, id uuid.UUID, phone string, expectedVersion int64, reason string) (*BookingRequestDTO, error) {
	if _, err := s.findOwned(ctx, id, phone); err != nil {
		return nil, err
	}
	return s.UpdateStatus(ctx, UpdateStatusCommand{
		ID:              id,
		NewStatus:       string(bookingDomain.StatusCancelled),
		Actor:           bookingDomain.Customer,
		ExpectedVersion: expectedVersion,
		Reason:          reason,
	})
}

// RequestModification records a customer's change request for staff to act on.
func (s *BookingService) RequestModification(ctx context.Context, id uuid.UUID, phone, notes string) (*RequestLogDTO, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, domain.NewValidationError("modification details are required")
	}

	b, err := s.findOwned(ctx, id, phone)
	if err != nil {
		return nil, err
	}
	if b.Status().IsTerminal() {
		return nil, domain.NewValidationError(fmt.Sprintf("booking request is %s and can no longer be modified", b.Status()))
	}

	now := s.now()
	entry, err := auditlog.NewModificationRequest(id, notes, bookingDomain.Customer.String(), now)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, err
	}

	event := notification.NewEvent(notification.EventModificationRequested, b, now)
	event.Notes = entry.Notes()
	s.notify(ctx, event)

	result := toRequestLogDTO(entry)
	return &result, nil
}

// CapturePayment marks a request paid after a payment provider confirms it.
// A lost version race is retried against a fresh read.
func (s *BookingService) CapturePayment(ctx context.Context, id uuid.UUID) (*BookingRequestDTO, error) {
	var lastErr error
	for attempt := 0; attempt < paymentCaptureAttempts; attempt++ {
		b, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if b.Status() == bookingDomain.StatusPaid {
			result := toBookingRequestDTO(b)
			return &result, nil
		}

		result, err := s.UpdateStatus(ctx, UpdateStatusCommand{
			ID:              id,
			NewStatus:       string(bookingDomain.StatusPaid),
			Actor:           bookingDomain.System,
			ExpectedVersion: b.Version(),
		})
		if err == nil {
			return result, nil
		}
		if !domain.IsConflict(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// --- Admin methods ---

// ListAll returns a filtered, paginated list of requests (admin).
func (s *BookingService) ListAll(ctx context.Context, filter bookingDomain.ListFilter, page, limit int) (*domain.PaginatedResult[BookingRequestDTO], error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", filter.Status))
	}
	for _, d := range []string{filter.DateFrom, filter.DateTo} {
		if d == "" {
			continue
		}
		if _, err := bookingDomain.ParseDate(d); err != nil {
			return nil, err
		}
	}

	requests, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking requests: %w", err)
	}

	result := domain.NewPaginatedResult(toBookingRequestDTOs(requests), total, page, limit)
	return &result, nil
}

// Stats returns request counts by status (admin).
func (s *BookingService) Stats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking request stats: %w", err)
	}

	byStatus := make(map[string]int64, len(bookingDomain.AllStatuses))
	var total int64
	for _, st := range bookingDomain.AllStatuses {
		byStatus[string(st)] = counts[st]
		total += counts[st]
	}

	return &BookingStatsDTO{
		TotalRequests: total,
		ByStatus:      byStatus,
	}, nil
}

// --- Helpers ---

func (s *BookingService) findOwned(ctx context.Context, id uuid.UUID, phone string) (*bookingDomain.BookingRequest, error) {
	if bookingDomain.NormalizePhone(phone) == "" {
		return nil, domain.NewValidationError("phone is required")
	}
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.BelongsTo(phone) {
		return nil, domain.NewNotFoundError("BookingRequest", id.String())
	}
	return b, nil
}

// publishStatus runs after commit; a failure here never undoes the write.
func (s *BookingService) publishStatus(ctx context.Context, b *bookingDomain.BookingRequest) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, realtime.FromBooking(b)); err != nil {
		metrics.IncRealtimeFailure()
		s.logger.Warn("failed to publish status update",
			zap.String("booking_request_id", b.ID().String()),
			zap.Int64("version", b.Version()),
			zap.Error(err),
		)
	}
}

func (s *BookingService) notify(ctx context.Context, event notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", string(event.Type)),
			zap.String("booking_request_id", event.BookingID.String()),
			zap.Error(err),
		)
	}
}
