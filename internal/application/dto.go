package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/conflict"
)

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                  uuid.UUID  `json:"id"`
	BookingNumber       string     `json:"booking_number"`
	Title               string     `json:"title"`
	RequesterID         uuid.UUID  `json:"requester_id"`
	ResourceID          *uuid.UUID `json:"resource_id,omitempty"`
	Location            string     `json:"location,omitempty"`
	Date                string     `json:"date"`
	Start               string     `json:"start"`
	End                 string     `json:"end"`
	BufferBefore        int        `json:"buffer_before"`
	BufferAfter         int        `json:"buffer_after"`
	EffectiveStart      string     `json:"effective_start"`
	EffectiveEnd        string     `json:"effective_end"`
	Status              string     `json:"status"`
	SpaceApproved       bool       `json:"space_approved"`
	TechApproved        bool       `json:"tech_approved"`
	Priority            string     `json:"priority"`
	RequiresTechSupport bool       `json:"requires_tech_support"`
	SupportMode         string     `json:"support_mode,omitempty"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ConflictDTO is the response representation of a conflict record.
type ConflictDTO struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	DisplacingID uuid.UUID  `json:"displacing_booking_id"`
	DisplacedID  uuid.UUID  `json:"displaced_booking_id"`
	ResourceID   uuid.UUID  `json:"resource_id"`
	Date         string     `json:"date"`
	From         string     `json:"from"`
	To           string     `json:"to"`
	Status       string     `json:"status"`
	Decision     string     `json:"decision,omitempty"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	DecidedBy    *uuid.UUID `json:"decided_by,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func toBookingDTO(bk *booking.Booking) BookingDTO {
	effStart, effEnd := bk.EffectiveWindow().Format(bk.Date())
	return BookingDTO{
		ID:                  bk.ID(),
		BookingNumber:       bk.BookingNumber(),
		Title:               bk.Title(),
		RequesterID:         bk.RequesterID(),
		ResourceID:          bk.ResourceID(),
		Location:            bk.Location(),
		Date:                booking.FormatDate(bk.Date()),
		Start:               bk.Start().String(),
		End:                 bk.End().String(),
		BufferBefore:        bk.BufferBefore(),
		BufferAfter:         bk.BufferAfter(),
		EffectiveStart:      effStart,
		EffectiveEnd:        effEnd,
		Status:              string(bk.Status()),
		SpaceApproved:       bk.SpaceApproved(),
		TechApproved:        bk.TechApproved(),
		Priority:            string(bk.Priority()),
		RequiresTechSupport: bk.RequiresTechSupport(),
		SupportMode:         string(bk.SupportMode()),
		Version:             bk.Version(),
		CreatedAt:           bk.CreatedAt(),
		UpdatedAt:           bk.UpdatedAt(),
	}
}

func toConflictDTO(r *conflict.Record) ConflictDTO {
	dto := ConflictDTO{
		ID:           r.ID(),
		Code:         r.Code(),
		DisplacingID: r.DisplacingID(),
		DisplacedID:  r.DisplacedID(),
		ResourceID:   r.ResourceID(),
		Date:         booking.FormatDate(r.WindowDate()),
		From:         r.WindowFrom().String(),
		To:           r.WindowTo().String(),
		Status:       string(r.Status()),
		CreatedBy:    r.CreatedBy(),
		DecidedBy:    r.DecidedBy(),
		Reason:       r.Reason(),
		CreatedAt:    r.CreatedAt(),
		ClosedAt:     r.ClosedAt(),
	}
	if d := r.Decision(); d != nil {
		dto.Decision = string(*d)
	}
	return dto
}

func toConflictDTOs(records []*conflict.Record) []ConflictDTO {
	dtos := make([]ConflictDTO, len(records))
	for i, r := range records {
		dtos[i] = toConflictDTO(r)
	}
	return dtos
}
