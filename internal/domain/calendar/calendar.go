// Package calendar builds the fixed 6x7 month grid used by the availability
// view. It is pure: callers supply the bookings, typically every request whose
// date falls inside the grid's range.
package calendar

import (
	"fmt"
	"time"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/domain/booking"
)

// GridSize is the number of cells in a month grid: six Sunday-first weeks.
const GridSize = 42

// Day is one grid cell.
type Day struct {
	Date           string                    `json:"date"`
	IsCurrentMonth bool                      `json:"is_current_month"`
	Bookings       []*booking.BookingRequest `json:"-"`
}

// Preview splits the day's bookings into the first n and the count of the
// rest. It is a rendering helper only; Bookings itself is never truncated.
func (d Day) Preview(n int) ([]*booking.BookingRequest, int) {
	if n < 0 {
		n = 0
	}
	if len(d.Bookings) <= n {
		return d.Bookings, 0
	}
	return d.Bookings[:n], len(d.Bookings) - n
}

// MonthStats summarizes the bookings dated inside the target month.
type MonthStats struct {
	Total    int                    `json:"total"`
	ByStatus map[booking.Status]int `json:"by_status"`
}

// Calendar is the aggregation result.
type Calendar struct {
	Year       int
	Month      time.Month
	Days       [GridSize]Day
	MonthStats MonthStats
}

// Range returns the first and last ISO dates covered by the grid for a month.
func Range(year int, month time.Month) (string, string, error) {
	start, err := gridStart(year, month)
	if err != nil {
		return "", "", err
	}
	return start.Format(booking.DateLayout), start.AddDate(0, 0, GridSize-1).Format(booking.DateLayout), nil
}

// MonthBounds returns the first and last ISO dates of the month.
func MonthBounds(year int, month time.Month) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(booking.DateLayout), last.Format(booking.DateLayout)
}

// Validate checks the year and month inputs.
func Validate(year int, month time.Month) error {
	if month < time.January || month > time.December {
		return domain.NewValidationError(fmt.Sprintf("invalid month: %d", month))
	}
	if year < 1 || year > 9999 {
		return domain.NewValidationError(fmt.Sprintf("invalid year: %d", year))
	}
	return nil
}

func gridStart(year int, month time.Month) (time.Time, error) {
	if err := Validate(year, month); err != nil {
		return time.Time{}, err
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 0, -int(first.Weekday())), nil
}

// Build lays out the 42-day grid for year/month and buckets bookings into it
// by exact date string. Stats cover only bookings dated within the month,
// regardless of grid padding. Bookings outside the grid are ignored for the
// cells but still counted if they fall in the month.
func Build(year int, month time.Month, bookings []*booking.BookingRequest) (*Calendar, error) {
	start, err := gridStart(year, month)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]*booking.BookingRequest, len(bookings))
	for _, b := range bookings {
		byDate[b.Date()] = append(byDate[b.Date()], b)
	}

	cal := &Calendar{Year: year, Month: month}
	for i := 0; i < GridSize; i++ {
		d := start.AddDate(0, 0, i)
		iso := d.Format(booking.DateLayout)
		cal.Days[i] = Day{
			Date:           iso,
			IsCurrentMonth: d.Month() == month,
			Bookings:       byDate[iso],
		}
	}

	cal.MonthStats = monthStats(year, month, bookings)
	return cal, nil
}

func monthStats(year int, month time.Month, bookings []*booking.BookingRequest) MonthStats {
	first, last := MonthBounds(year, month)
	stats := MonthStats{ByStatus: make(map[booking.Status]int, len(booking.AllStatuses))}
	for _, s := range booking.AllStatuses {
		stats.ByStatus[s] = 0
	}
	for _, b := range bookings {
		// ISO dates compare correctly as strings.
		if b.Date() < first || b.Date() > last {
			continue
		}
		stats.Total++
		stats.ByStatus[b.Status()]++
	}
	return stats
}
