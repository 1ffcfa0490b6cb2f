package application

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/pkg/domain"
)

// PriorityTie lists the bookings that block a HIGH-priority candidate at the
// same priority.
type PriorityTie struct {
	BookingID uuid.UUID   `json:"booking_id"`
	TiedWith  []uuid.UUID `json:"tied_with"`
}

// canPreempt reports whether a candidate may displace the bookings it collides with.
func canPreempt(candidate *booking.Booking) bool {
	return candidate.IsResourceBound() && candidate.Priority() == booking.PriorityHigh
}

// resolvePriority decides a preemption. Every conflicting booking is displaced
// unless any of them is itself HIGH, in which case nothing is.
func resolvePriority(candidate *booking.Booking, conflicting []*booking.Booking) ([]*booking.Booking, error) {
	var tied []uuid.UUID
	for _, bk := range conflicting {
		if bk.Priority().Rank() >= candidate.Priority().Rank() {
			tied = append(tied, bk.ID())
		}
	}
	if len(tied) > 0 {
		return nil, domain.NewPriorityTieError(
			fmt.Sprintf("booking %s collides with %d booking(s) of equal priority", candidate.BookingNumber(), len(tied)),
			PriorityTie{BookingID: candidate.ID(), TiedWith: tied},
		)
	}
	displaced := make([]*booking.Booking, len(conflicting))
	copy(displaced, conflicting)
	return displaced, nil
}
