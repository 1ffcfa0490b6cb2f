//go:build integration

package main_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/booking"
	bookingEvents "github.com/roomline/service-booking/internal/events"
	"github.com/roomline/service-booking/internal/repository"
	"github.com/roomline/service-booking/pkg/domain"
)

// TestHighPriorityReservation_PreemptsAndPublishes reserves a MEDIUM booking,
// then reserves an overlapping HIGH booking on the same room. The HIGH one
// goes through, an OPEN conflict record is stored and announced on Kafka, and
// resolving it publishes the resolution.
func TestHighPriorityReservation_PreemptsAndPublishes(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	roomID := seedResource(t, infra.DB, "Auditorium", 10, 10)
	requester := actor.Actor{ID: uuid.New(), Authorities: []actor.Authority{actor.AuthorityRequester}}
	manager := actor.Actor{ID: uuid.New(), Authorities: []actor.Authority{actor.AuthoritySpaceManager}}

	create := func(title, priority, start, end string) *application.BookingDTO {
		dto, err := stack.Bookings.CreateBooking(ctx, requester, application.CreateBookingRequest{
			Title:      title,
			ResourceID: roomID.String(),
			Date:       "2026-03-10",
			Start:      start,
			End:        end,
			Priority:   priority,
		})
		require.NoError(t, err)
		return dto
	}
	move := func(id uuid.UUID, target string) *application.ChangeStatusResult {
		res, err := stack.Status.ChangeStatus(ctx, manager, id, application.ChangeStatusRequest{Target: target})
		require.NoError(t, err)
		return res
	}

	seminar := create("Seminar", "MEDIUM", "09:00", "10:00")
	assert.Equal(t, "08:50", seminar.EffectiveStart, "catalog buffers apply")
	move(seminar.ID, "IN_REVIEW")
	move(seminar.ID, "RESERVED")

	keynote := create("Keynote", "HIGH", "09:30", "11:00")
	move(keynote.ID, "IN_REVIEW")
	res := move(keynote.ID, "RESERVED")

	assert.True(t, res.Changed)
	assert.Equal(t, "RESERVED", res.Booking.Status)
	require.Len(t, res.Conflicts, 1)
	rec := res.Conflicts[0]
	assert.Equal(t, keynote.ID, rec.DisplacingID)
	assert.Equal(t, seminar.ID, rec.DisplacedID)
	assert.Equal(t, "OPEN", rec.Status)

	// The displaced booking keeps its status until someone acts on it.
	displaced, err := stack.Bookings.GetBooking(ctx, seminar.ID)
	require.NoError(t, err)
	assert.Equal(t, "RESERVED", displaced.Status)

	ce := consumeOneEvent(t, infra.KafkaBrokers, bookingEvents.TopicConflicts,
		bookingEvents.ConflictCreated, rec.Code, 20*time.Second)
	var created bookingEvents.ConflictEvent
	require.NoError(t, ce.ParseData(&created))
	assert.Equal(t, rec.ID, created.ConflictID)
	assert.Equal(t, roomID, created.ResourceID)
	assert.Equal(t, "2026-03-10", created.Date)

	resolved, err := stack.Conflicts.ResolveConflict(ctx, manager, rec.Code, application.ResolveConflictRequest{
		Decision: "keep_new",
		Reason:   "keynote takes the room",
	})
	require.NoError(t, err)
	assert.Equal(t, "RESOLVED", resolved.Status)
	assert.Equal(t, seminar.ID, resolved.FollowUp.BookingID)
	assert.Equal(t, "REJECTED", resolved.FollowUp.TargetStatus)

	ce = consumeOneEvent(t, infra.KafkaBrokers, bookingEvents.TopicConflicts,
		bookingEvents.ConflictResolved, rec.Code, 20*time.Second)
	var closed bookingEvents.ConflictEvent
	require.NoError(t, ce.ParseData(&closed))
	assert.Equal(t, "KEEP_NEW", closed.Decision)
	require.NotNil(t, closed.DecidedBy)
	assert.Equal(t, manager.ID, *closed.DecidedBy)

	move(seminar.ID, "REJECTED")

	entries, err := repository.NewGormAuditRepository(infra.DB).FindBySubject(ctx, keynote.ID)
	require.NoError(t, err)
	kinds := make([]audit.Kind, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	assert.Contains(t, kinds, audit.KindConflictCreated)
	assert.Contains(t, kinds, audit.KindStatusChange)
}

// TestReservation_SamePriorityIsRejected checks that a MEDIUM booking cannot
// take a slot held by another MEDIUM booking and that nothing is written.
func TestReservation_SamePriorityIsRejected(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	roomID := seedResource(t, infra.DB, "Room 101", 0, 0)
	requester := actor.Actor{ID: uuid.New(), Authorities: []actor.Authority{actor.AuthorityRequester}}
	manager := actor.Actor{ID: uuid.New(), Authorities: []actor.Authority{actor.AuthoritySpaceManager}}

	var ids []uuid.UUID
	for _, start := range []string{"10:00", "10:30"} {
		dto, err := stack.Bookings.CreateBooking(ctx, requester, application.CreateBookingRequest{
			Title:      "Workshop " + start,
			ResourceID: roomID.String(),
			Date:       "2026-03-11",
			Start:      start,
			End:        "11:30",
		})
		require.NoError(t, err)
		_, err = stack.Status.ChangeStatus(ctx, manager, dto.ID, application.ChangeStatusRequest{Target: "IN_REVIEW"})
		require.NoError(t, err)
		ids = append(ids, dto.ID)
	}

	_, err := stack.Status.ChangeStatus(ctx, manager, ids[0], application.ChangeStatusRequest{Target: "RESERVED"})
	require.NoError(t, err)

	_, err = stack.Status.ChangeStatus(ctx, manager, ids[1], application.ChangeStatusRequest{Target: "RESERVED"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeAvailabilityConflict))

	second, err := stack.Bookings.GetBooking(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "IN_REVIEW", second.Status)
	assert.Equal(t, int64(2), second.Version)

	records, err := stack.Conflicts.ListBookingConflicts(ctx, ids[1])
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestUnitOfWork_RollsBackOnError checks that a failed unit of work leaves no
// booking or audit rows behind.
func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	roomID := seedResource(t, infra.DB, "Lab", 0, 0)
	bk, err := booking.NewBooking(booking.NewBookingParams{
		Title:       "Rolled back",
		RequesterID: uuid.New(),
		ResourceID:  &roomID,
		Date:        time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Start:       booking.TimeOfDay(9 * 60),
		End:         booking.TimeOfDay(10 * 60),
	}, time.Now())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = stack.UnitOfWork.Do(ctx, func(ctx context.Context, repos application.Repositories) error {
		if err := repos.Bookings.Save(ctx, bk); err != nil {
			return err
		}
		if err := repos.Audit.Append(ctx, audit.NewEntry(bk.ID(), bk.RequesterID(), audit.KindBookingCreated, "", "REQUESTED", "", "", time.Now())); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = stack.Bookings.GetBooking(ctx, bk.ID())
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))

	entries, err := repository.NewGormAuditRepository(infra.DB).FindBySubject(ctx, bk.ID())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
