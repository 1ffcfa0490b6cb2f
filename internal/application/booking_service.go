package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/pkg/domain"
)

// CreateBookingRequest holds the data needed to create a new booking.
// Buffers left nil take the resource's defaults.
type CreateBookingRequest struct {
	Title               string `json:"title" validate:"required,max=200"`
	ResourceID          string `json:"resource_id" validate:"omitempty,uuid"`
	Location            string `json:"location" validate:"max=200"`
	Date                string `json:"date" validate:"required,datetime=2006-01-02"`
	Start               string `json:"start" validate:"required,datetime=15:04"`
	End                 string `json:"end" validate:"required,datetime=15:04"`
	BufferBefore        *int   `json:"buffer_before" validate:"omitempty,min=0,max=240"`
	BufferAfter         *int   `json:"buffer_after" validate:"omitempty,min=0,max=240"`
	Priority            string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	RequiresTechSupport bool   `json:"requires_tech_support"`
	SupportMode         string `json:"support_mode" validate:"omitempty,oneof=ON_SITE REMOTE"`
}

// BookingService handles booking intake and lookup.
type BookingService struct {
	bookings booking.BookingRepository
	catalog  ResourceCatalog
	uow      UnitOfWork
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings booking.BookingRepository,
	catalog ResourceCatalog,
	uow UnitOfWork,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		catalog:  catalog,
		uow:      uow,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking records a new REQUESTED booking on behalf of act.
func (s *BookingService) CreateBooking(ctx context.Context, act actor.Actor, req CreateBookingRequest) (*BookingDTO, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	date, err := booking.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	start, err := booking.ParseTimeOfDay(req.Start)
	if err != nil {
		return nil, err
	}
	end, err := booking.ParseTimeOfDay(req.End)
	if err != nil {
		return nil, err
	}
	priority, err := booking.ParsePriority(req.Priority)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	mode, err := booking.ParseSupportMode(req.SupportMode)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	params := booking.NewBookingParams{
		Title:               req.Title,
		RequesterID:         act.ID,
		Location:            req.Location,
		Date:                date,
		Start:               start,
		End:                 end,
		Priority:            priority,
		RequiresTechSupport: req.RequiresTechSupport,
		SupportMode:         mode,
	}

	if req.ResourceID != "" {
		rid := uuid.MustParse(req.ResourceID)
		res, err := s.catalog.Lookup(ctx, rid)
		if err != nil {
			return nil, err
		}
		if !res.Active {
			return nil, domain.NewNotFoundError("resource", rid.String())
		}
		params.ResourceID = &rid
		params.BufferBefore = res.DefaultBufferBefore
		params.BufferAfter = res.DefaultBufferAfter
	}
	if req.BufferBefore != nil {
		params.BufferBefore = *req.BufferBefore
	}
	if req.BufferAfter != nil {
		params.BufferAfter = *req.BufferAfter
	}

	now := s.now()
	bk, err := booking.NewBooking(params, now)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos Repositories) error {
		if err := repos.Bookings.Save(ctx, bk); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}
		entry := audit.NewEntry(bk.ID(), act.ID, audit.KindBookingCreated, "", string(bk.Status()), "", bk.BookingNumber(), now)
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create booking", zap.Error(err))
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
	)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}
