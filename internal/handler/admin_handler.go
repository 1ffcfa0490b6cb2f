package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/pkg/auth"
	"github.com/roomline/service-booking/pkg/middleware"
	"github.com/roomline/service-booking/pkg/response"
)

// AdminHandler handles admin HTTP requests for the technical capacity config.
type AdminHandler struct {
	service   CapacityService
	directory application.ActorDirectory
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service CapacityService, directory application.ActorDirectory) *AdminHandler {
	return &AdminHandler{service: service, directory: directory}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW)
	{
		admin.GET("/tech-capacity", h.GetTechCapacity)
		admin.PUT("/tech-capacity", middleware.RequireAuthority(string(actor.AuthoritySuperuser)), h.UpdateTechCapacity)
	}
}

// GetTechCapacity handles GET /api/v1/admin/tech-capacity.
func (h *AdminHandler) GetTechCapacity(c *gin.Context) {
	result, err := h.service.GetTechCapacity(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateTechCapacity handles PUT /api/v1/admin/tech-capacity.
func (h *AdminHandler) UpdateTechCapacity(c *gin.Context) {
	act, ok := resolveActor(c, h.directory)
	if !ok {
		return
	}

	var req application.UpdateTechCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateTechCapacity(c.Request.Context(), act, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
