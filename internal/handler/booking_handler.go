package handler

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/application"
	"github.com/tourdesk/service-booking/internal/common/response"
	"github.com/tourdesk/service-booking/internal/domain/booking"
	"github.com/tourdesk/service-booking/internal/realtime"
)

const defaultKeepAlive = 25 * time.Second

// BookingHandler serves the customer-facing booking request endpoints.
type BookingHandler struct {
	service   *application.BookingService
	updates   realtime.Subscriber
	logger    *zap.Logger
	keepAlive time.Duration
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService, updates realtime.Subscriber, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:   service,
		updates:   updates,
		logger:    logger,
		keepAlive: defaultKeepAlive,
	}
}

// RegisterRoutes registers the public routes. mw runs before every handler,
// typically the rate limiter.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, mw ...gin.HandlerFunc) {
	requests := r.Group("/api/v1/booking-requests")
	requests.Use(mw...)
	{
		requests.POST("", h.CreateBookingRequest)
		requests.GET("", h.ListByPhone)
		requests.GET("/:id", h.GetBookingRequest)
		requests.POST("/:id/cancel", h.Cancel)
		requests.POST("/:id/modification", h.RequestModification)
		requests.GET("/:id/events", h.StreamStatus)
	}
}

// CreateBookingRequest handles POST /api/v1/booking-requests.
func (h *BookingHandler) CreateBookingRequest(c *gin.Context) {
	var req application.CreateBookingRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBookingRequest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListByPhone handles GET /api/v1/booking-requests?phone=.
func (h *BookingHandler) ListByPhone(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.BadRequest(c, "phone is required")
		return
	}

	result, err := h.service.ListByPhone(c.Request.Context(), phone)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetBookingRequest handles GET /api/v1/booking-requests/:id?phone=.
func (h *BookingHandler) GetBookingRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.service.GetForCustomer(c.Request.Context(), id, c.Query("phone"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type cancelRequest struct {
	Phone           string `json:"phone" binding:"required"`
	ExpectedVersion int64  `json:"expected_version" binding:"required"`
	Reason          string `json:"reason"`
}

// Cancel handles POST /api/v1/booking-requests/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body cancelRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CancelByCustomer(c.Request.Context(), id, body.Phone, body.ExpectedVersion, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type modificationRequest struct {
	Phone string `json:"phone" binding:"required"`
	Notes string `json:"notes" binding:"required"`
}

// RequestModification handles POST /api/v1/booking-requests/:id/modification.
func (h *BookingHandler) RequestModification(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body modificationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RequestModification(c.Request.Context(), id, body.Phone, body.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// StreamStatus handles GET /api/v1/booking-requests/:id/events?phone= as a
// server-sent event stream. The subscription is opened before the current
// state is read, so a transition committing in between is either in the
// snapshot or delivered afterwards. Events never go back past the snapshot.
func (h *BookingHandler) StreamStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates, err := h.updates.Subscribe(ctx, id, 0)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.service.GetForCustomer(ctx, id, c.Query("phone"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("status", realtime.StatusUpdate{
		ID:        snapshot.ID,
		Status:    statusOf(snapshot),
		Version:   snapshot.Version,
		UpdatedAt: snapshot.UpdatedAt,
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case u, open := <-updates:
			if !open {
				return false
			}
			if u.Version <= snapshot.Version {
				return true
			}
			c.SSEvent("status", u)
			return true
		case <-ticker.C:
			c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
			return true
		}
	})

	h.logger.Debug("status stream closed", zap.String("booking_request_id", id.String()))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking request ID")
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

func statusOf(dto *application.BookingRequestDTO) booking.Status {
	return booking.Status(dto.Status)
}
