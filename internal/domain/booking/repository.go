package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByIDForUpdate retrieves a booking and locks its row until the
	// enclosing transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindBlockingByResourceAndDate lists bookings in a blocking status for
	// one resource and date, skipping excludeID when set.
	FindBlockingByResourceAndDate(ctx context.Context, resourceID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*Booking, error)

	// FindBlockingTechSupportByDate lists blocking bookings on date that
	// require technical support, across all resources and locations.
	FindBlockingTechSupportByDate(ctx context.Context, date time.Time, excludeID *uuid.UUID) ([]*Booking, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
