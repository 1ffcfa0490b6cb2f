package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/pkg/middleware"
	"github.com/roomline/service-booking/pkg/response"
)

// BookingService is the booking intake surface used by BookingHandler.
type BookingService interface {
	CreateBooking(ctx context.Context, act actor.Actor, req application.CreateBookingRequest) (*application.BookingDTO, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*application.BookingDTO, error)
}

// StatusService is the workflow surface used by BookingHandler.
type StatusService interface {
	GetStatusOptions(ctx context.Context, bookingID uuid.UUID) (*application.StatusOptions, error)
	ChangeStatus(ctx context.Context, act actor.Actor, bookingID uuid.UUID, req application.ChangeStatusRequest) (*application.ChangeStatusResult, error)
}

// ConflictService is the ledger surface used by ConflictHandler and BookingHandler.
type ConflictService interface {
	ResolveConflict(ctx context.Context, act actor.Actor, code string, req application.ResolveConflictRequest) (*application.ResolveConflictResult, error)
	GetConflict(ctx context.Context, code string) (*application.ConflictDTO, error)
	ListBookingConflicts(ctx context.Context, bookingID uuid.UUID) ([]application.ConflictDTO, error)
}

// AvailabilityService answers availability questions.
type AvailabilityService interface {
	CheckAvailability(ctx context.Context, req application.AvailabilityRequest) (*application.AvailabilityResult, error)
}

// CapacityService manages the technical capacity config.
type CapacityService interface {
	GetTechCapacity(ctx context.Context) (*application.TechCapacityDTO, error)
	UpdateTechCapacity(ctx context.Context, act actor.Actor, req application.UpdateTechCapacityRequest) (*application.TechCapacityDTO, error)
}

// resolveActor turns the verified claims on c into an Actor. It writes the
// error response itself and reports false when the request must stop.
func resolveActor(c *gin.Context, directory application.ActorDirectory) (actor.Actor, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return actor.Actor{}, false
	}
	act, err := directory.Resolve(c.Request.Context(), actor.Principal{
		Subject:     claims.UserID.String(),
		Authorities: claims.Authorities,
	})
	if err != nil {
		response.Error(c, err)
		return actor.Actor{}, false
	}
	return act, true
}

func parseBookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
