package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/pkg/auth"
	"github.com/roomline/service-booking/pkg/middleware"
	"github.com/roomline/service-booking/pkg/response"
)

// AvailabilityHandler serves the read-only availability check.
type AvailabilityHandler struct {
	service AvailabilityService
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(service AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// RegisterRoutes registers GET /api/v1/availability.
func (h *AvailabilityHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	r.GET("/api/v1/availability", middleware.AuthMiddleware(jwtManager), h.CheckAvailability)
}

// CheckAvailability handles GET /api/v1/availability.
func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	var req application.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
