package conflict

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/pkg/domain"
)

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Status is the lifecycle state of a conflict record.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Decision is the human outcome of a conflict.
type Decision string

const (
	DecisionKeepNew       Decision = "KEEP_NEW"
	DecisionKeepDisplaced Decision = "KEEP_DISPLACED"
)

// ParseDecision converts a string to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToUpper(s)); d {
	case DecisionKeepNew, DecisionKeepDisplaced:
		return d, nil
	default:
		return "", domain.NewValidationError(fmt.Sprintf("invalid decision %q, expected KEEP_NEW or KEEP_DISPLACED", s))
	}
}

// Record is a durable ledger entry created when a HIGH-priority booking
// proceeds over a lower-priority one.
type Record struct {
	id           uuid.UUID
	code         string
	displacingID uuid.UUID
	displacedID  uuid.UUID
	resourceID   uuid.UUID
	windowDate   time.Time
	windowFrom   booking.TimeOfDay
	windowTo     booking.TimeOfDay
	status       Status
	decision     *Decision
	createdBy    uuid.UUID
	decidedBy    *uuid.UUID
	reason       string
	createdAt    time.Time
	closedAt     *time.Time
}

// Snapshot is the full persisted state of a record.
type Snapshot struct {
	ID           uuid.UUID
	Code         string
	DisplacingID uuid.UUID
	DisplacedID  uuid.UUID
	ResourceID   uuid.UUID
	WindowDate   time.Time
	WindowFrom   booking.TimeOfDay
	WindowTo     booking.TimeOfDay
	Status       Status
	Decision     *Decision
	CreatedBy    uuid.UUID
	DecidedBy    *uuid.UUID
	Reason       string
	CreatedAt    time.Time
	ClosedAt     *time.Time
}

func generateCode() (string, error) {
	result := make([]byte, 8)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate conflict code: %w", err)
		}
		result[i] = codeChars[n.Int64()]
	}
	return "CF-" + string(result), nil
}

// Open creates an OPEN record for displacing taking the window of displaced.
// The window snapshot is the displacing booking's requested window.
func Open(displacing, displaced *booking.Booking, createdBy uuid.UUID, reason string, now time.Time) (*Record, error) {
	if displacing.ID() == displaced.ID() {
		return nil, domain.NewValidationError("a booking cannot displace itself")
	}
	if !displacing.IsResourceBound() {
		return nil, domain.NewValidationError("only resource-bound bookings can displace others")
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	return &Record{
		id:           uuid.New(),
		code:         code,
		displacingID: displacing.ID(),
		displacedID:  displaced.ID(),
		resourceID:   *displacing.ResourceID(),
		windowDate:   displacing.Date(),
		windowFrom:   displacing.Start(),
		windowTo:     displacing.End(),
		status:       StatusOpen,
		createdBy:    createdBy,
		reason:       reason,
		createdAt:    now.UTC(),
	}, nil
}

// Reconstruct rebuilds a Record from persistence data (no validation).
func Reconstruct(s Snapshot) *Record {
	return &Record{
		id:           s.ID,
		code:         s.Code,
		displacingID: s.DisplacingID,
		displacedID:  s.DisplacedID,
		resourceID:   s.ResourceID,
		windowDate:   s.WindowDate,
		windowFrom:   s.WindowFrom,
		windowTo:     s.WindowTo,
		status:       s.Status,
		decision:     s.Decision,
		createdBy:    s.CreatedBy,
		decidedBy:    s.DecidedBy,
		reason:       s.Reason,
		createdAt:    s.CreatedAt,
		closedAt:     s.ClosedAt,
	}
}

// Snapshot exports the record's state.
func (r *Record) Snapshot() Snapshot {
	return Snapshot{
		ID:           r.id,
		Code:         r.code,
		DisplacingID: r.displacingID,
		DisplacedID:  r.displacedID,
		ResourceID:   r.resourceID,
		WindowDate:   r.windowDate,
		WindowFrom:   r.windowFrom,
		WindowTo:     r.windowTo,
		Status:       r.status,
		Decision:     r.decision,
		CreatedBy:    r.createdBy,
		DecidedBy:    r.decidedBy,
		Reason:       r.reason,
		CreatedAt:    r.createdAt,
		ClosedAt:     r.closedAt,
	}
}

func (r *Record) ID() uuid.UUID                 { return r.id }
func (r *Record) Code() string                  { return r.code }
func (r *Record) DisplacingID() uuid.UUID       { return r.displacingID }
func (r *Record) DisplacedID() uuid.UUID        { return r.displacedID }
func (r *Record) ResourceID() uuid.UUID         { return r.resourceID }
func (r *Record) WindowDate() time.Time         { return r.windowDate }
func (r *Record) WindowFrom() booking.TimeOfDay { return r.windowFrom }
func (r *Record) WindowTo() booking.TimeOfDay   { return r.windowTo }
func (r *Record) Status() Status                { return r.status }
func (r *Record) Decision() *Decision           { return r.decision }
func (r *Record) CreatedBy() uuid.UUID          { return r.createdBy }
func (r *Record) DecidedBy() *uuid.UUID         { return r.decidedBy }
func (r *Record) Reason() string                { return r.reason }
func (r *Record) CreatedAt() time.Time          { return r.createdAt }
func (r *Record) ClosedAt() *time.Time          { return r.closedAt }

// Resolve closes the record. Decision, decider and close time are set together.
func (r *Record) Resolve(decision Decision, decidedBy uuid.UUID, reason string, now time.Time) error {
	if r.status != StatusOpen {
		return domain.NewInvalidStateError(string(r.status), string(StatusResolved))
	}
	closed := now.UTC()
	r.status = StatusResolved
	r.decision = &decision
	r.decidedBy = &decidedBy
	r.closedAt = &closed
	if reason != "" {
		r.reason = reason
	}
	return nil
}

// LosingBookingID returns the booking the decision goes against. It is only
// meaningful once the record is resolved.
func (r *Record) LosingBookingID() (uuid.UUID, bool) {
	if r.decision == nil {
		return uuid.Nil, false
	}
	if *r.decision == DecisionKeepNew {
		return r.displacedID, true
	}
	return r.displacingID, true
}
