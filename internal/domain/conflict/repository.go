package conflict

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for conflict records.
type Repository interface {
	// Save persists a new record.
	Save(ctx context.Context, record *Record) error

	// Update persists the resolution of an existing record.
	Update(ctx context.Context, record *Record) error

	// FindByCode retrieves a record by its unique code.
	FindByCode(ctx context.Context, code string) (*Record, error)

	// FindByCodeForUpdate retrieves and row-locks a record.
	FindByCodeForUpdate(ctx context.Context, code string) (*Record, error)

	// FindByBooking lists records where the booking is displacing or displaced.
	FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Record, error)
}
