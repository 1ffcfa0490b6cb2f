package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/capacity"
	"github.com/roomline/service-booking/internal/domain/conflict"
)

// Resource is the catalog view of a bookable resource.
type Resource struct {
	ID                  uuid.UUID
	Name                string
	Active              bool
	DefaultBufferBefore int
	DefaultBufferAfter  int
}

// ResourceCatalog looks up resources. Unknown ids yield a NOT_FOUND error.
type ResourceCatalog interface {
	Lookup(ctx context.Context, id uuid.UUID) (*Resource, error)
}

// ActorDirectory turns a transport principal into an Actor.
type ActorDirectory interface {
	Resolve(ctx context.Context, p actor.Principal) (actor.Actor, error)
}

// AuditSink records decisions. Appends are part of the caller's unit of work.
type AuditSink interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// NotificationSink is told about ledger changes after commit. Failures are
// the sink's concern and never reach the caller.
type NotificationSink interface {
	ConflictCreated(ctx context.Context, record *conflict.Record)
	ConflictResolved(ctx context.Context, record *conflict.Record)
}

// Repositories bundles the stores used inside one unit of work.
type Repositories struct {
	Bookings  booking.BookingRepository
	Conflicts conflict.Repository
	Capacity  capacity.Repository
	Audit     AuditSink
}

// UnitOfWork runs fn atomically. Any error returned by fn rolls back every
// write made through the repositories it receives.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// SlotLocker serializes check-then-write sequences for one resource and date.
type SlotLocker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// NoopLocker grants every lock immediately.
type NoopLocker struct{}

// Acquire always succeeds.
func (NoopLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// NoopNotifier drops every notification.
type NoopNotifier struct{}

func (NoopNotifier) ConflictCreated(context.Context, *conflict.Record)  {}
func (NoopNotifier) ConflictResolved(context.Context, *conflict.Record) {}
