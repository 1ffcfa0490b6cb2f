package application

import (
	"context"
	"fmt"

	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/capacity"
)

// CapacityGate checks the global technical-support limit for a booking.
type CapacityGate struct{}

// Evaluate returns the verdict for bk against the stored config. Bookings
// without technical support always pass.
func (CapacityGate) Evaluate(ctx context.Context, repos Repositories, bk *booking.Booking) (capacity.Verdict, error) {
	if !bk.RequiresTechSupport() {
		return capacity.Verdict{Allowed: true}, nil
	}

	cfg, err := repos.Capacity.Get(ctx)
	if err != nil {
		return capacity.Verdict{}, fmt.Errorf("failed to load capacity config: %w", err)
	}
	if !cfg.Active {
		return capacity.Verdict{Allowed: true}, nil
	}

	id := bk.ID()
	others, err := repos.Bookings.FindBlockingTechSupportByDate(ctx, bk.Date(), &id)
	if err != nil {
		return capacity.Verdict{}, fmt.Errorf("failed to load tech-support bookings: %w", err)
	}

	windows := make([]booking.Window, 0, len(others))
	for _, o := range others {
		if o.ID() == id || !o.RequiresTechSupport() || !o.Status().IsBlocking() {
			continue
		}
		windows = append(windows, o.EffectiveWindow())
	}

	return capacity.Evaluate(cfg, bk.Date(), bk.EffectiveWindow(), windows), nil
}
