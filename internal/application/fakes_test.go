package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/capacity"
	"github.com/roomline/service-booking/internal/domain/conflict"
	"github.com/roomline/service-booking/pkg/domain"
	"github.com/roomline/service-booking/pkg/redislock"
)

var (
	testNow  = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	testDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

// memStore is an in-memory backing store whose unit of work restores the
// previous state when fn fails.
type memStore struct {
	bookings  map[uuid.UUID]booking.Snapshot
	conflicts map[string]conflict.Snapshot
	capacity  *capacity.Config
	audits    []audit.Entry
	failAudit bool
}

func newMemStore() *memStore {
	return &memStore{
		bookings:  map[uuid.UUID]booking.Snapshot{},
		conflicts: map[string]conflict.Snapshot{},
	}
}

func (s *memStore) repos() Repositories {
	return Repositories{
		Bookings:  memBookings{s},
		Conflicts: memConflicts{s},
		Capacity:  memCapacity{s},
		Audit:     memAudit{s},
	}
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	bookings := make(map[uuid.UUID]booking.Snapshot, len(s.bookings))
	for k, v := range s.bookings {
		bookings[k] = v
	}
	conflicts := make(map[string]conflict.Snapshot, len(s.conflicts))
	for k, v := range s.conflicts {
		conflicts[k] = v
	}
	var cfg *capacity.Config
	if s.capacity != nil {
		c := *s.capacity
		cfg = &c
	}
	audits := append([]audit.Entry(nil), s.audits...)

	if err := fn(ctx, s.repos()); err != nil {
		s.bookings = bookings
		s.conflicts = conflicts
		s.capacity = cfg
		s.audits = audits
		return err
	}
	return nil
}

func (s *memStore) booking(t *testing.T, id uuid.UUID) *booking.Booking {
	t.Helper()
	snap, ok := s.bookings[id]
	require.True(t, ok, "booking %s not stored", id)
	return booking.ReconstructBooking(snap)
}

func (s *memStore) auditKinds() []audit.Kind {
	kinds := make([]audit.Kind, len(s.audits))
	for i, e := range s.audits {
		kinds[i] = e.Kind
	}
	return kinds
}

func (s *memStore) openConflicts() []conflict.Snapshot {
	var open []conflict.Snapshot
	for _, c := range s.conflicts {
		if c.Status == conflict.StatusOpen {
			open = append(open, c)
		}
	}
	return open
}

type memBookings struct{ s *memStore }

func (r memBookings) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	snap, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	return booking.ReconstructBooking(snap), nil
}

func (r memBookings) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r memBookings) FindBlockingByResourceAndDate(_ context.Context, resourceID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for id, snap := range r.s.bookings {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if snap.ResourceID == nil || *snap.ResourceID != resourceID {
			continue
		}
		if !snap.Date.Equal(booking.NormalizeDate(date)) || !snap.Status.IsBlocking() {
			continue
		}
		out = append(out, booking.ReconstructBooking(snap))
	}
	return out, nil
}

func (r memBookings) FindBlockingTechSupportByDate(_ context.Context, date time.Time, excludeID *uuid.UUID) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for id, snap := range r.s.bookings {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if !snap.RequiresTechSupport || !snap.Status.IsBlocking() || !snap.Date.Equal(booking.NormalizeDate(date)) {
			continue
		}
		out = append(out, booking.ReconstructBooking(snap))
	}
	return out, nil
}

func (r memBookings) Save(_ context.Context, bk *booking.Booking) error {
	r.s.bookings[bk.ID()] = bk.Snapshot()
	return nil
}

func (r memBookings) Update(_ context.Context, bk *booking.Booking) error {
	prev, ok := r.s.bookings[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("booking", bk.ID().String())
	}
	if prev.Version != bk.Version()-1 {
		return domain.NewConflictError("booking was modified concurrently")
	}
	r.s.bookings[bk.ID()] = bk.Snapshot()
	return nil
}

type memConflicts struct{ s *memStore }

func (r memConflicts) Save(_ context.Context, rec *conflict.Record) error {
	r.s.conflicts[rec.Code()] = rec.Snapshot()
	return nil
}

func (r memConflicts) Update(_ context.Context, rec *conflict.Record) error {
	r.s.conflicts[rec.Code()] = rec.Snapshot()
	return nil
}

func (r memConflicts) FindByCode(_ context.Context, code string) (*conflict.Record, error) {
	snap, ok := r.s.conflicts[code]
	if !ok {
		return nil, domain.NewNotFoundError("conflict", code)
	}
	return conflict.Reconstruct(snap), nil
}

func (r memConflicts) FindByCodeForUpdate(ctx context.Context, code string) (*conflict.Record, error) {
	return r.FindByCode(ctx, code)
}

func (r memConflicts) FindByBooking(_ context.Context, bookingID uuid.UUID) ([]*conflict.Record, error) {
	var out []*conflict.Record
	for _, snap := range r.s.conflicts {
		if snap.DisplacingID == bookingID || snap.DisplacedID == bookingID {
			out = append(out, conflict.Reconstruct(snap))
		}
	}
	return out, nil
}

type memCapacity struct{ s *memStore }

func (r memCapacity) Get(context.Context) (capacity.Config, error) {
	if r.s.capacity == nil {
		return capacity.DefaultConfig(), nil
	}
	return *r.s.capacity, nil
}

func (r memCapacity) Save(_ context.Context, cfg capacity.Config) error {
	r.s.capacity = &cfg
	return nil
}

type memAudit struct{ s *memStore }

func (r memAudit) Append(_ context.Context, e audit.Entry) error {
	if r.s.failAudit {
		return errors.New("audit store unavailable")
	}
	r.s.audits = append(r.s.audits, e)
	return nil
}

type memCatalog map[uuid.UUID]Resource

func (c memCatalog) Lookup(_ context.Context, id uuid.UUID) (*Resource, error) {
	res, ok := c[id]
	if !ok {
		return nil, domain.NewNotFoundError("resource", id.String())
	}
	return &res, nil
}

type recordingNotifier struct {
	created  []string
	resolved []string
}

func (n *recordingNotifier) ConflictCreated(_ context.Context, r *conflict.Record) {
	n.created = append(n.created, r.Code())
}

func (n *recordingNotifier) ConflictResolved(_ context.Context, r *conflict.Record) {
	n.resolved = append(n.resolved, r.Code())
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return nil, redislock.ErrNotAcquired
}

type seed struct {
	resourceID    *uuid.UUID
	location      string
	start, end    string
	before, after int
	status        booking.BookingStatus
	priority      booking.Priority
	space, tech   bool
	techSupport   bool
}

func (s *memStore) seed(t *testing.T, sd seed) *booking.Booking {
	t.Helper()
	start, err := booking.ParseTimeOfDay(sd.start)
	require.NoError(t, err)
	end, err := booking.ParseTimeOfDay(sd.end)
	require.NoError(t, err)
	bk, err := booking.NewBooking(booking.NewBookingParams{
		Title:               "Seminar",
		RequesterID:         uuid.New(),
		ResourceID:          sd.resourceID,
		Location:            sd.location,
		Date:                testDate,
		Start:               start,
		End:                 end,
		BufferBefore:        sd.before,
		BufferAfter:         sd.after,
		Priority:            sd.priority,
		RequiresTechSupport: sd.techSupport,
	}, testNow)
	require.NoError(t, err)

	snap := bk.Snapshot()
	if sd.status != "" {
		snap.Status = sd.status
	}
	snap.SpaceApproved = sd.space
	snap.TechApproved = sd.tech
	s.bookings[snap.ID] = snap
	return booking.ReconstructBooking(snap)
}

func actorWith(authorities ...actor.Authority) actor.Actor {
	return actor.Actor{ID: uuid.New(), Authorities: authorities}
}

func superuser() actor.Actor { return actorWith(actor.AuthoritySuperuser) }

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }

func newStatusService(store *memStore, notifier NotificationSink) *StatusService {
	svc := NewStatusService(store.repos().Bookings, store, nil, notifier, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}
