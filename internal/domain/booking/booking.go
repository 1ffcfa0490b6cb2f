package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomline/service-booking/pkg/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for a request to occupy a resource.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	title         string
	requesterID   uuid.UUID

	resourceID *uuid.UUID
	location   string

	date         time.Time
	start        TimeOfDay
	end          TimeOfDay
	bufferBefore int
	bufferAfter  int

	status        BookingStatus
	spaceApproved bool
	techApproved  bool
	priority      Priority

	requiresTechSupport bool
	supportMode         SupportMode

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingParams holds the caller-supplied fields of a new booking.
type NewBookingParams struct {
	Title               string
	RequesterID         uuid.UUID
	ResourceID          *uuid.UUID
	Location            string
	Date                time.Time
	Start               TimeOfDay
	End                 TimeOfDay
	BufferBefore        int
	BufferAfter         int
	Priority            Priority
	RequiresTechSupport bool
	SupportMode         SupportMode
}

// Snapshot is the full persisted state of a booking.
type Snapshot struct {
	ID                  uuid.UUID
	BookingNumber       string
	Title               string
	RequesterID         uuid.UUID
	ResourceID          *uuid.UUID
	Location            string
	Date                time.Time
	Start               TimeOfDay
	End                 TimeOfDay
	BufferBefore        int
	BufferAfter         int
	Status              BookingStatus
	SpaceApproved       bool
	TechApproved        bool
	Priority            Priority
	RequiresTechSupport bool
	SupportMode         SupportMode
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// generateBookingNumber creates a booking number in the format "BK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=REQUESTED.
func NewBooking(p NewBookingParams, now time.Time) (*Booking, error) {
	if p.RequesterID == uuid.Nil {
		return nil, domain.NewValidationError("requester ID is required")
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	location := strings.TrimSpace(p.Location)
	hasResource := p.ResourceID != nil && *p.ResourceID != uuid.Nil
	if hasResource == (location != "") {
		return nil, domain.NewValidationError("exactly one of resource or location must be set")
	}
	if p.Date.IsZero() {
		return nil, domain.NewValidationError("date is required")
	}
	if err := ValidateSchedule(p.Start, p.End, p.BufferBefore, p.BufferAfter); err != nil {
		return nil, err
	}
	priority := p.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid priority: %s", p.Priority))
	}
	mode := p.SupportMode
	if p.RequiresTechSupport && mode == SupportNone {
		mode = SupportOnSite
	}
	if !p.RequiresTechSupport {
		mode = SupportNone
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	var resourceID *uuid.UUID
	if hasResource {
		rid := *p.ResourceID
		resourceID = &rid
	}

	now = now.UTC()
	return &Booking{
		id:                  uuid.New(),
		bookingNumber:       bookingNumber,
		title:               title,
		requesterID:         p.RequesterID,
		resourceID:          resourceID,
		location:            location,
		date:                NormalizeDate(p.Date),
		start:               p.Start,
		end:                 p.End,
		bufferBefore:        p.BufferBefore,
		bufferAfter:         p.BufferAfter,
		status:              StatusRequested,
		priority:            priority,
		requiresTechSupport: p.RequiresTechSupport,
		supportMode:         mode,
		version:             1,
		createdAt:           now,
		updatedAt:           now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(s Snapshot) *Booking {
	return &Booking{
		id:                  s.ID,
		bookingNumber:       s.BookingNumber,
		title:               s.Title,
		requesterID:         s.RequesterID,
		resourceID:          s.ResourceID,
		location:            s.Location,
		date:                NormalizeDate(s.Date),
		start:               s.Start,
		end:                 s.End,
		bufferBefore:        s.BufferBefore,
		bufferAfter:         s.BufferAfter,
		status:              s.Status,
		spaceApproved:       s.SpaceApproved,
		techApproved:        s.TechApproved,
		priority:            s.Priority,
		requiresTechSupport: s.RequiresTechSupport,
		supportMode:         s.SupportMode,
		version:             s.Version,
		createdAt:           s.CreatedAt,
		updatedAt:           s.UpdatedAt,
	}
}

// Snapshot exports the booking's state for persistence.
func (b *Booking) Snapshot() Snapshot {
	return Snapshot{
		ID:                  b.id,
		BookingNumber:       b.bookingNumber,
		Title:               b.title,
		RequesterID:         b.requesterID,
		ResourceID:          b.resourceID,
		Location:            b.location,
		Date:                b.date,
		Start:               b.start,
		End:                 b.end,
		BufferBefore:        b.bufferBefore,
		BufferAfter:         b.bufferAfter,
		Status:              b.status,
		SpaceApproved:       b.spaceApproved,
		TechApproved:        b.techApproved,
		Priority:            b.priority,
		RequiresTechSupport: b.requiresTechSupport,
		SupportMode:         b.supportMode,
		Version:             b.version,
		CreatedAt:           b.createdAt,
		UpdatedAt:           b.updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// Title returns the booking title.
func (b *Booking) Title() string { return b.title }

// RequesterID returns the user who asked for the booking.
func (b *Booking) RequesterID() uuid.UUID { return b.requesterID }

// ResourceID returns the booked resource, or nil for a free-text location.
func (b *Booking) ResourceID() *uuid.UUID { return b.resourceID }

// Location returns the free-text location, empty when resource-bound.
func (b *Booking) Location() string { return b.location }

// IsResourceBound reports whether the booking occupies a catalog resource.
func (b *Booking) IsResourceBound() bool { return b.resourceID != nil }

// Date returns the booking date at UTC midnight.
func (b *Booking) Date() time.Time { return b.date }

// Start returns the requested start time.
func (b *Booking) Start() TimeOfDay { return b.start }

// End returns the requested end time.
func (b *Booking) End() TimeOfDay { return b.end }

// BufferBefore returns the buffer minutes before the start.
func (b *Booking) BufferBefore() int { return b.bufferBefore }

// BufferAfter returns the buffer minutes after the end.
func (b *Booking) BufferAfter() int { return b.bufferAfter }

// EffectiveWindow returns the buffered window used for conflict detection.
func (b *Booking) EffectiveWindow() Window {
	return EffectiveWindow(b.start, b.end, b.bufferBefore, b.bufferAfter)
}

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// SpaceApproved returns the space-domain approval flag.
func (b *Booking) SpaceApproved() bool { return b.spaceApproved }

// TechApproved returns the technical-domain approval flag.
func (b *Booking) TechApproved() bool { return b.techApproved }

// Priority returns the priority tier.
func (b *Booking) Priority() Priority { return b.priority }

// RequiresTechSupport reports whether the booking consumes technical capacity.
func (b *Booking) RequiresTechSupport() bool { return b.requiresTechSupport }

// SupportMode returns how technical support is delivered.
func (b *Booking) SupportMode() SupportMode { return b.supportMode }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Approval returns the value of one approval flag.
func (b *Booking) Approval(d ApprovalDomain) bool {
	if d == ApprovalSpace {
		return b.spaceApproved
	}
	return b.techApproved
}

// SetApproval sets one approval flag and reports whether it changed.
func (b *Booking) SetApproval(d ApprovalDomain, value bool, now time.Time) bool {
	if b.Approval(d) == value {
		return false
	}
	if d == ApprovalSpace {
		b.spaceApproved = value
	} else {
		b.techApproved = value
	}
	b.updatedAt = now.UTC()
	return true
}

// MissingApprovals lists the flags that are still false.
func (b *Booking) MissingApprovals() []ApprovalDomain {
	var missing []ApprovalDomain
	for _, d := range ApprovalDomains() {
		if !b.Approval(d) {
			missing = append(missing, d)
		}
	}
	return missing
}

// TransitionTo moves the booking to target if the transition table allows it.
// Guards beyond the table are the caller's responsibility.
func (b *Booking) TransitionTo(target BookingStatus, now time.Time) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	b.status = target
	b.updatedAt = now.UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}
