package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/pkg/auth"
	"github.com/roomline/service-booking/pkg/middleware"
	"github.com/roomline/service-booking/pkg/response"
)

// BookingHandler handles HTTP requests for bookings and their workflow.
type BookingHandler struct {
	bookings  BookingService
	status    StatusService
	conflicts ConflictService
	directory application.ActorDirectory
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings BookingService, status StatusService, conflicts ConflictService, directory application.ActorDirectory) *BookingHandler {
	return &BookingHandler{
		bookings:  bookings,
		status:    status,
		conflicts: conflicts,
		directory: directory,
	}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := r.Group("/api/v1/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager))
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBooking)
		bookings.GET("/:id/status-options", h.GetStatusOptions)
		bookings.POST("/:id/status", h.ChangeStatus)
		bookings.GET("/:id/conflicts", h.ListConflicts)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	act, ok := resolveActor(c, h.directory)
	if !ok {
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.bookings.CreateBooking(c.Request.Context(), act, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	result, err := h.bookings.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetStatusOptions handles GET /api/v1/bookings/:id/status-options.
func (h *BookingHandler) GetStatusOptions(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	result, err := h.status.GetStatusOptions(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ChangeStatus handles POST /api/v1/bookings/:id/status.
func (h *BookingHandler) ChangeStatus(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}
	act, ok := resolveActor(c, h.directory)
	if !ok {
		return
	}

	var req application.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.status.ChangeStatus(c.Request.Context(), act, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListConflicts handles GET /api/v1/bookings/:id/conflicts.
func (h *BookingHandler) ListConflicts(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	result, err := h.conflicts.ListBookingConflicts(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
