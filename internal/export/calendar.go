// Package export renders the admin calendar as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tourdesk/service-booking/internal/domain/calendar"
)

const (
	calendarSheet = "Calendar"
	bookingsSheet = "Bookings"

	// previewPerDay is how many bookings a grid cell lists before "+N".
	previewPerDay = 3
)

var weekdays = [7]string{"일", "월", "화", "수", "목", "금", "토"}

var bookingHeaders = []string{"날짜", "고객명", "연락처", "성인", "아동", "금액", "상태", "픽업 장소", "요청 사항"}

// WriteCalendar writes cal as an .xlsx workbook with a month grid sheet and a
// flat list of the month's bookings.
func WriteCalendar(w io.Writer, cal *calendar.Calendar) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", calendarSheet); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}
	if err := writeGrid(f, cal); err != nil {
		return err
	}

	if _, err := f.NewSheet(bookingsSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	if err := writeBookings(f, cal); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// FileName returns the download name for a month's export.
func FileName(cal *calendar.Calendar) string {
	return fmt.Sprintf("calendar_%04d_%02d.xlsx", cal.Year, int(cal.Month))
}

func writeGrid(f *excelize.File, cal *calendar.Calendar) error {
	_ = f.SetCellValue(calendarSheet, "A1", fmt.Sprintf("%04d-%02d", cal.Year, int(cal.Month)))
	_ = f.MergeCell(calendarSheet, "A1", "G1")
	_ = f.SetColWidth(calendarSheet, "A", "G", 22)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	paddingStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F2F2F2"}, Pattern: 1},
		Font:      &excelize.Font{Color: "#808080"},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	dayStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for col, name := range weekdays {
		cell, _ := excelize.CoordinatesToCellName(col+1, 2)
		_ = f.SetCellValue(calendarSheet, cell, name)
		_ = f.SetCellStyle(calendarSheet, cell, cell, headerStyle)
	}

	for i, day := range cal.Days {
		cell, _ := excelize.CoordinatesToCellName(i%7+1, i/7+3)
		if err := f.SetCellValue(calendarSheet, cell, DayText(day)); err != nil {
			return fmt.Errorf("error writing cell %s: %w", cell, err)
		}
		style := dayStyle
		if !day.IsCurrentMonth {
			style = paddingStyle
		}
		_ = f.SetCellStyle(calendarSheet, cell, cell, style)
	}
	return nil
}

// DayText is the content of one grid cell: the day of month, then up to
// three bookings and a "+N" line for the rest.
func DayText(day calendar.Day) string {
	n, err := strconv.Atoi(day.Date[len(day.Date)-2:])
	if err != nil {
		n = 0
	}

	lines := []string{strconv.Itoa(n)}
	shown, more := day.Preview(previewPerDay)
	for _, b := range shown {
		lines = append(lines, fmt.Sprintf("%s (%s)", b.Customer().Name, b.Status().LabelKO()))
	}
	if more > 0 {
		lines = append(lines, fmt.Sprintf("+%d", more))
	}
	return strings.Join(lines, "\n")
}

func writeBookings(f *excelize.File, cal *calendar.Calendar) error {
	for col, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}

	row := 2
	for _, day := range cal.Days {
		if !day.IsCurrentMonth {
			continue
		}
		for _, b := range day.Bookings {
			values := []any{
				b.Date(),
				b.Customer().Name,
				b.Customer().Phone,
				b.AdultCount(),
				b.ChildCount(),
				b.TotalAmount(),
				b.Status().LabelKO(),
				b.PickupLocation(),
				b.SpecialRequests(),
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(bookingsSheet, cell, &values); err != nil {
				return fmt.Errorf("error writing row %d: %w", row, err)
			}
			row++
		}
	}
	return nil
}
