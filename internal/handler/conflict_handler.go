package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/pkg/auth"
	"github.com/roomline/service-booking/pkg/middleware"
	"github.com/roomline/service-booking/pkg/response"
)

// ConflictHandler handles HTTP requests for the conflict ledger.
type ConflictHandler struct {
	service   ConflictService
	directory application.ActorDirectory
}

// NewConflictHandler creates a new ConflictHandler.
func NewConflictHandler(service ConflictService, directory application.ActorDirectory) *ConflictHandler {
	return &ConflictHandler{service: service, directory: directory}
}

// RegisterRoutes registers the conflict routes.
func (h *ConflictHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	conflicts := r.Group("/api/v1/conflicts")
	conflicts.Use(middleware.AuthMiddleware(jwtManager))
	{
		conflicts.GET("/:code", h.GetConflict)
		conflicts.POST("/:code/resolve", h.ResolveConflict)
	}
}

// GetConflict handles GET /api/v1/conflicts/:code.
func (h *ConflictHandler) GetConflict(c *gin.Context) {
	result, err := h.service.GetConflict(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ResolveConflict handles POST /api/v1/conflicts/:code/resolve.
func (h *ConflictHandler) ResolveConflict(c *gin.Context) {
	act, ok := resolveActor(c, h.directory)
	if !ok {
		return
	}

	var req application.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ResolveConflict(c.Request.Context(), act, c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
