package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tourdesk/service-booking/internal/application"
	"github.com/tourdesk/service-booking/internal/common/auth"
	"github.com/tourdesk/service-booking/internal/common/middleware"
	"github.com/tourdesk/service-booking/internal/common/response"
	"github.com/tourdesk/service-booking/internal/domain/auditlog"
	"github.com/tourdesk/service-booking/internal/domain/booking"
	"github.com/tourdesk/service-booking/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminBookingHandler handles staff console requests for booking management.
type AdminBookingHandler struct {
	service  *application.BookingService
	calendar *application.CalendarService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService, calendar *application.CalendarService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service, calendar: calendar}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	staffRole := middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, staffRole)
	{
		admin.GET("/booking-requests", h.ListBookingRequests)
		admin.PATCH("/booking-requests/:id/status", h.UpdateStatus)
		admin.POST("/booking-requests/:id/memos", h.AddMemo)
		admin.GET("/booking-requests/:id/logs", h.ListLogs)
		admin.GET("/calendar/:year/:month", h.Calendar)
		admin.GET("/calendar/:year/:month/export", h.ExportCalendar)
		admin.GET("/stats/booking-requests", h.Stats)
	}
}

// ListBookingRequests handles GET /api/v1/admin/booking-requests.
func (h *AdminBookingHandler) ListBookingRequests(c *gin.Context) {
	var filter booking.ListFilter
	if s := c.Query("status"); s != "" {
		status, err := booking.ParseStatus(s)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = status
	}
	filter.DateFrom = c.Query("date_from")
	filter.DateTo = c.Query("date_to")

	page, limit := parsePagination(c)
	result, err := h.service.ListAll(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

type updateStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ExpectedVersion int64  `json:"expected_version" binding:"required"`
	Reason          string `json:"reason"`
}

// UpdateStatus handles PATCH /api/v1/admin/booking-requests/:id/status.
func (h *AdminBookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateStatus(c.Request.Context(), application.UpdateStatusCommand{
		ID:              id,
		NewStatus:       body.Status,
		Actor:           booking.Staff(userID),
		ExpectedVersion: body.ExpectedVersion,
		Reason:          body.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AddMemo handles POST /api/v1/admin/booking-requests/:id/memos.
func (h *AdminBookingHandler) AddMemo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var body struct {
		Notes string `json:"notes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddMemo(c.Request.Context(), id, booking.Staff(userID), body.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListLogs handles GET /api/v1/admin/booking-requests/:id/logs?action=.
// The action parameter may repeat; without it every entry is returned.
func (h *AdminBookingHandler) ListLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var actions []auditlog.Action
	for _, s := range c.QueryArray("action") {
		a, err := auditlog.ParseAction(s)
		if err != nil {
			response.Error(c, err)
			return
		}
		actions = append(actions, a)
	}

	result, err := h.service.ListHistory(c.Request.Context(), id, actions...)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Calendar handles GET /api/v1/admin/calendar/:year/:month.
func (h *AdminBookingHandler) Calendar(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	cal, err := h.calendar.GetCalendar(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, application.ToCalendarDTO(cal))
}

// ExportCalendar handles GET /api/v1/admin/calendar/:year/:month/export.
func (h *AdminBookingHandler) ExportCalendar(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	cal, err := h.calendar.GetCalendar(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCalendar(&buf, cal); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(cal)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Stats handles GET /api/v1/admin/stats/booking-requests.
func (h *AdminBookingHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

func parseYearMonth(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.BadRequest(c, "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		response.BadRequest(c, "invalid month")
		return 0, 0, false
	}
	return year, month, true
}
