package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/pkg/domain"
)

const reasonLocationNotChecked = "free-text location is not checked"

// AvailabilityQuery is a resolved availability question.
type AvailabilityQuery struct {
	ResourceID   *uuid.UUID
	Date         time.Time
	Start        booking.TimeOfDay
	End          booking.TimeOfDay
	BufferBefore int
	BufferAfter  int
	ExcludeID    *uuid.UUID
}

// ConflictingBooking is one committed booking colliding with a query.
type ConflictingBooking struct {
	ID             uuid.UUID `json:"id"`
	Status         string    `json:"status"`
	Title          string    `json:"title"`
	ResourceID     uuid.UUID `json:"resource_id"`
	Date           string    `json:"date"`
	EffectiveStart string    `json:"effective_start"`
	EffectiveEnd   string    `json:"effective_end"`
	BufferBefore   int       `json:"buffer_before"`
	BufferAfter    int       `json:"buffer_after"`
	Priority       string    `json:"priority"`
}

// AvailabilityResult is the outcome of an availability check.
type AvailabilityResult struct {
	Available      bool                 `json:"available"`
	Skipped        bool                 `json:"skipped"`
	Reason         string               `json:"reason,omitempty"`
	RequestedStart string               `json:"requested_start"`
	RequestedEnd   string               `json:"requested_end"`
	Conflicts      []ConflictingBooking `json:"conflicts"`
}

// AvailabilityChecker finds blocking bookings that collide with a window.
type AvailabilityChecker struct{}

// Check answers q against repo. It returns the colliding bookings alongside
// the result, in the same order as result.Conflicts.
func (AvailabilityChecker) Check(ctx context.Context, repo booking.BookingRepository, q AvailabilityQuery) (*AvailabilityResult, []*booking.Booking, error) {
	requested := booking.EffectiveWindow(q.Start, q.End, q.BufferBefore, q.BufferAfter)
	reqStart, reqEnd := requested.Format(q.Date)
	result := &AvailabilityResult{
		RequestedStart: reqStart,
		RequestedEnd:   reqEnd,
		Conflicts:      []ConflictingBooking{},
	}

	if q.ResourceID == nil {
		result.Available = true
		result.Skipped = true
		result.Reason = reasonLocationNotChecked
		return result, nil, nil
	}

	candidates, err := repo.FindBlockingByResourceAndDate(ctx, *q.ResourceID, q.Date, q.ExcludeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bookings for availability: %w", err)
	}

	var colliding []*booking.Booking
	for _, bk := range candidates {
		if q.ExcludeID != nil && bk.ID() == *q.ExcludeID {
			continue
		}
		if !bk.Status().IsBlocking() {
			continue
		}
		if bk.EffectiveWindow().Overlaps(requested) {
			colliding = append(colliding, bk)
		}
	}

	sort.SliceStable(colliding, func(i, j int) bool {
		wi, wj := colliding[i].EffectiveWindow(), colliding[j].EffectiveWindow()
		if wi.Start != wj.Start {
			return wi.Start < wj.Start
		}
		return colliding[i].ID().String() < colliding[j].ID().String()
	})

	for _, bk := range colliding {
		effStart, effEnd := bk.EffectiveWindow().Format(bk.Date())
		result.Conflicts = append(result.Conflicts, ConflictingBooking{
			ID:             bk.ID(),
			Status:         string(bk.Status()),
			Title:          bk.Title(),
			ResourceID:     *bk.ResourceID(),
			Date:           booking.FormatDate(bk.Date()),
			EffectiveStart: effStart,
			EffectiveEnd:   effEnd,
			BufferBefore:   bk.BufferBefore(),
			BufferAfter:    bk.BufferAfter(),
			Priority:       string(bk.Priority()),
		})
	}

	result.Available = len(colliding) == 0
	if !result.Available {
		result.Reason = fmt.Sprintf("%d conflicting booking(s)", len(colliding))
	}
	return result, colliding, nil
}

// AvailabilityRequest is the transport form of an availability question.
// Buffers left nil fall back to the resource's defaults.
type AvailabilityRequest struct {
	ResourceID   string `json:"resource_id" form:"resource_id" validate:"omitempty,uuid"`
	Date         string `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	Start        string `json:"start" form:"start" validate:"required,datetime=15:04"`
	End          string `json:"end" form:"end" validate:"required,datetime=15:04"`
	BufferBefore *int   `json:"buffer_before" form:"buffer_before" validate:"omitempty,min=0,max=240"`
	BufferAfter  *int   `json:"buffer_after" form:"buffer_after" validate:"omitempty,min=0,max=240"`
	ExcludeID    string `json:"exclude_id" form:"exclude_id" validate:"omitempty,uuid"`
}

// AvailabilityService exposes the read-only availability check.
type AvailabilityService struct {
	bookings booking.BookingRepository
	catalog  ResourceCatalog
	checker  AvailabilityChecker
	logger   *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(bookings booking.BookingRepository, catalog ResourceCatalog, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		bookings: bookings,
		catalog:  catalog,
		logger:   logger,
	}
}

// CheckAvailability validates req, resolves buffer defaults and runs the check.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error) {
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

	q := AvailabilityQuery{Date: date, Start: start, End: end}
	if req.ExcludeID != "" {
		id := uuid.MustParse(req.ExcludeID)
		q.ExcludeID = &id
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
		q.ResourceID = &rid
		q.BufferBefore = res.DefaultBufferBefore
		q.BufferAfter = res.DefaultBufferAfter
	}
	if req.BufferBefore != nil {
		q.BufferBefore = *req.BufferBefore
	}
	if req.BufferAfter != nil {
		q.BufferAfter = *req.BufferAfter
	}

	// Malformed windows are rejected even for free-text locations.
	if err := booking.ValidateSchedule(q.Start, q.End, q.BufferBefore, q.BufferAfter); err != nil {
		return nil, err
	}

	result, _, err := s.checker.Check(ctx, s.bookings, q)
	if err != nil {
		s.logger.Error("availability check failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}
