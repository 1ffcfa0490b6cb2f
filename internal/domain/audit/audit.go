package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an audit entry.
type Kind string

const (
	KindBookingCreated   Kind = "BOOKING_CREATED"
	KindStatusChange     Kind = "STATUS_CHANGE"
	KindFlagChange       Kind = "FLAG_CHANGE"
	KindReprogram        Kind = "REPROGRAM"
	KindConflictCreated  Kind = "CONFLICT_CREATED"
	KindConflictResolved Kind = "CONFLICT_RESOLVED"
	KindCapacityChange   Kind = "CAPACITY_CHANGE"
)

// Entry is one recorded decision.
type Entry struct {
	ID        uuid.UUID
	SubjectID uuid.UUID
	ActorID   uuid.UUID
	Kind      Kind
	From      string
	To        string
	Reason    string
	Note      string
	CreatedAt time.Time
}

// NewEntry stamps a new entry with an id and time.
func NewEntry(subjectID, actorID uuid.UUID, kind Kind, from, to, reason, note string, now time.Time) Entry {
	return Entry{
		ID:        uuid.New(),
		SubjectID: subjectID,
		ActorID:   actorID,
		Kind:      kind,
		From:      from,
		To:        to,
		Reason:    reason,
		Note:      note,
		CreatedAt: now.UTC(),
	}
}
