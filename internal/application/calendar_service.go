package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	bookingDomain "github.com/tourdesk/service-booking/internal/domain/booking"
	"github.com/tourdesk/service-booking/internal/domain/calendar"
)

// CalendarService serves the admin availability view. It reads the store
// directly and never goes through BookingService.
type CalendarService struct {
	repo   bookingDomain.Repository
	logger *zap.Logger
}

// NewCalendarService creates a new CalendarService.
func NewCalendarService(repo bookingDomain.Repository, logger *zap.Logger) *CalendarService {
	return &CalendarService{repo: repo, logger: logger}
}

// GetCalendar builds the 42-day grid for year/month with every booking dated
// inside it, padding days included.
func (s *CalendarService) GetCalendar(ctx context.Context, year, month int) (*calendar.Calendar, error) {
	m := time.Month(month)
	from, to, err := calendar.Range(year, m)
	if err != nil {
		return nil, err
	}

	requests, err := s.repo.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for calendar: %w", err)
	}

	s.logger.Debug("calendar loaded",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("bookings", len(requests)),
	)
	return calendar.Build(year, m, requests)
}
