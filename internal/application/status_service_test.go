package application

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/capacity"
	"github.com/roomline/service-booking/internal/domain/conflict"
	"github.com/roomline/service-booking/pkg/domain"
)

func TestChangeStatus_RequiresStatusCapability(t *testing.T) {
	store := newMemStore()
	bk := store.seed(t, seed{location: "Hall B", start: "09:00", end: "10:00"})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), actorWith(actor.AuthorityRequester), bk.ID(), ChangeStatusRequest{Target: "IN_REVIEW"})

	assert.True(t, domain.IsCode(err, domain.CodeForbidden))
	assert.Equal(t, booking.StatusRequested, store.booking(t, bk.ID()).Status())
}

func TestChangeStatus_IllegalTransitionsLeaveBookingUntouched(t *testing.T) {
	for _, from := range booking.AllStatuses() {
		for _, to := range booking.AllStatuses() {
			if from.CanTransitionTo(to) {
				continue
			}
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				store := newMemStore()
				rid := uuid.New()
				bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: from})
				before := store.bookings[bk.ID()]
				svc := newStatusService(store, nil)

				_, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{
					Target:        string(to),
					SpaceApproved: boolPtr(true),
					TechApproved:  boolPtr(true),
				})

				assert.True(t, domain.IsCode(err, domain.CodeIllegalTransition), "got %v", err)
				assert.Equal(t, before, store.bookings[bk.ID()])
				assert.Empty(t, store.audits)
			})
		}
	}
}

func TestChangeStatus_ApprovalAcrossFlagStates(t *testing.T) {
	for _, from := range booking.AllStatuses() {
		for _, space := range []bool{false, true} {
			for _, tech := range []bool{false, true} {
				name := fmt.Sprintf("%s_space=%t_tech=%t", from, space, tech)
				t.Run(name, func(t *testing.T) {
					store := newMemStore()
					rid := uuid.New()
					bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: from, space: space, tech: tech})
					svc := newStatusService(store, nil)

					res, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{Target: "APPROVED"})

					stored := store.booking(t, bk.ID())
					switch {
					case !from.CanTransitionTo(booking.StatusApproved):
						assert.True(t, domain.IsCode(err, domain.CodeIllegalTransition))
						assert.Equal(t, from, stored.Status())
					case space && tech:
						require.NoError(t, err)
						assert.True(t, res.Changed)
						assert.False(t, res.ApprovalPending)
						assert.Equal(t, booking.StatusApproved, stored.Status())
					default:
						require.NoError(t, err)
						assert.True(t, res.ApprovalPending)
						assert.False(t, res.Changed)
						assert.Equal(t, from, stored.Status())
						var want []string
						if !space {
							want = append(want, string(booking.ApprovalSpace))
						}
						if !tech {
							want = append(want, string(booking.ApprovalTech))
						}
						assert.Equal(t, want, res.Missing)
						assert.Empty(t, store.audits)
					}
					assert.Equal(t, space, stored.SpaceApproved())
					assert.Equal(t, tech, stored.TechApproved())
				})
			}
		}
	}
}

func TestChangeStatus_ApprovalPendingThenApproved(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusInReview})
	svc := newStatusService(store, nil)
	ctx := context.Background()

	res, err := svc.ChangeStatus(ctx, actorWith(actor.AuthoritySpaceManager), bk.ID(), ChangeStatusRequest{
		Target:        "APPROVED",
		SpaceApproved: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, res.ApprovalPending)
	assert.Equal(t, []string{"tech_approved"}, res.Missing)

	stored := store.booking(t, bk.ID())
	assert.Equal(t, booking.StatusInReview, stored.Status())
	assert.True(t, stored.SpaceApproved())
	assert.Equal(t, []audit.Kind{audit.KindFlagChange}, store.auditKinds())

	res, err = svc.ChangeStatus(ctx, actorWith(actor.AuthorityTechManager), bk.ID(), ChangeStatusRequest{
		Target:       "APPROVED",
		TechApproved: boolPtr(true),
	})
	require.NoError(t, err)
	assert.False(t, res.ApprovalPending)
	assert.True(t, res.Changed)
	assert.Equal(t, "APPROVED", res.Booking.Status)
	assert.Equal(t, []audit.Kind{audit.KindFlagChange, audit.KindFlagChange, audit.KindStatusChange}, store.auditKinds())
	assert.Equal(t, int64(3), store.booking(t, bk.ID()).Version())
}

func TestChangeStatus_RaisingForeignFlagIsForbidden(t *testing.T) {
	store := newMemStore()
	bk := store.seed(t, seed{location: "Hall B", start: "09:00", end: "10:00", status: booking.StatusInReview})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), actorWith(actor.AuthorityTechManager), bk.ID(), ChangeStatusRequest{
		Target:        "APPROVED",
		SpaceApproved: boolPtr(true),
		TechApproved:  boolPtr(true),
	})

	assert.True(t, domain.IsCode(err, domain.CodeForbidden))
	stored := store.booking(t, bk.ID())
	assert.False(t, stored.SpaceApproved())
	assert.False(t, stored.TechApproved())
	assert.Empty(t, store.audits)
}

func TestChangeStatus_BufferedOverlapRejected(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	existing := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", before: 10, after: 10, status: booking.StatusApproved})
	candidate := store.seed(t, seed{resourceID: &rid, start: "10:05", end: "11:00", status: booking.StatusInReview})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), superuser(), candidate.ID(), ChangeStatusRequest{Target: "RESERVED"})

	require.True(t, domain.IsCode(err, domain.CodeAvailabilityConflict), "got %v", err)
	de, _ := domain.AsDomainError(err)
	result, ok := de.Details.(*AvailabilityResult)
	require.True(t, ok)
	assert.False(t, result.Available)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, existing.ID(), result.Conflicts[0].ID)
	assert.Equal(t, "2026-03-02T08:50", result.Conflicts[0].EffectiveStart)
	assert.Equal(t, "2026-03-02T10:10", result.Conflicts[0].EffectiveEnd)
	assert.Equal(t, booking.StatusInReview, store.booking(t, candidate.ID()).Status())
}

func TestChangeStatus_ExcludesSelf(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusReserved, space: true, tech: true})
	svc := newStatusService(store, nil)

	res, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{Target: "APPROVED"})

	require.NoError(t, err)
	assert.Equal(t, "APPROVED", res.Booking.Status)
}

func TestChangeStatus_FreeTextLocationNeverConflicts(t *testing.T) {
	store := newMemStore()
	store.seed(t, seed{location: "Main hall", start: "09:00", end: "10:00", status: booking.StatusApproved})
	bk := store.seed(t, seed{location: "Main hall", start: "09:00", end: "10:00", status: booking.StatusInReview})
	svc := newStatusService(store, nil)

	res, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{Target: "RESERVED"})

	require.NoError(t, err)
	assert.Equal(t, "RESERVED", res.Booking.Status)
}

func TestChangeStatus_HighPriorityPreempts(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	low := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusReserved, priority: booking.PriorityLow})
	medium := store.seed(t, seed{resourceID: &rid, start: "10:00", end: "11:00", status: booking.StatusApproved, priority: booking.PriorityMedium, space: true, tech: true})
	high := store.seed(t, seed{resourceID: &rid, start: "09:30", end: "10:30", status: booking.StatusInReview, priority: booking.PriorityHigh})
	lowBefore, mediumBefore := store.bookings[low.ID()], store.bookings[medium.ID()]
	notifier := &recordingNotifier{}
	svc := newStatusService(store, notifier)
	act := superuser()

	res, err := svc.ChangeStatus(context.Background(), act, high.ID(), ChangeStatusRequest{Target: "RESERVED", Reason: "board meeting"})

	require.NoError(t, err)
	assert.Equal(t, "RESERVED", res.Booking.Status)
	require.Len(t, res.Conflicts, 2)

	open := store.openConflicts()
	require.Len(t, open, 2)
	displaced := map[uuid.UUID]bool{}
	for _, c := range open {
		assert.Equal(t, high.ID(), c.DisplacingID)
		assert.Equal(t, rid, c.ResourceID)
		assert.Equal(t, act.ID, c.CreatedBy)
		assert.Nil(t, c.Decision)
		displaced[c.DisplacedID] = true
	}
	assert.True(t, displaced[low.ID()])
	assert.True(t, displaced[medium.ID()])

	assert.Equal(t, lowBefore, store.bookings[low.ID()])
	assert.Equal(t, mediumBefore, store.bookings[medium.ID()])
	assert.Len(t, notifier.created, 2)
	assert.ElementsMatch(t, []audit.Kind{audit.KindConflictCreated, audit.KindConflictCreated, audit.KindStatusChange}, store.auditKinds())
}

func TestChangeStatus_PriorityTieWritesNothing(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusReserved, priority: booking.PriorityLow})
	rival := store.seed(t, seed{resourceID: &rid, start: "09:30", end: "10:30", status: booking.StatusReserved, priority: booking.PriorityHigh})
	high := store.seed(t, seed{resourceID: &rid, start: "09:15", end: "10:15", status: booking.StatusInReview, priority: booking.PriorityHigh})
	notifier := &recordingNotifier{}
	svc := newStatusService(store, notifier)

	_, err := svc.ChangeStatus(context.Background(), superuser(), high.ID(), ChangeStatusRequest{Target: "RESERVED"})

	require.True(t, domain.IsCode(err, domain.CodePriorityTie), "got %v", err)
	de, _ := domain.AsDomainError(err)
	tie, ok := de.Details.(PriorityTie)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{rival.ID()}, tie.TiedWith)
	assert.Empty(t, store.conflicts)
	assert.Empty(t, store.audits)
	assert.Empty(t, notifier.created)
	assert.Equal(t, booking.StatusInReview, store.booking(t, high.ID()).Status())
}

func TestChangeStatus_NonHighPriorityGetsPlainConflict(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusReserved, priority: booking.PriorityLow})
	mid := store.seed(t, seed{resourceID: &rid, start: "09:30", end: "10:30", status: booking.StatusInReview, priority: booking.PriorityMedium})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), superuser(), mid.ID(), ChangeStatusRequest{Target: "RESERVED"})

	assert.True(t, domain.IsCode(err, domain.CodeAvailabilityConflict))
	assert.Empty(t, store.conflicts)
}

func TestChangeStatus_CapacityGate(t *testing.T) {
	store := newMemStore()
	store.capacity = &capacity.Config{BlockMinutes: 30, SlotsPerBlock: 1, Active: true}
	store.seed(t, seed{location: "Lab 1", start: "09:00", end: "10:00", status: booking.StatusReserved, techSupport: true})
	rid := uuid.New()
	bk := store.seed(t, seed{resourceID: &rid, start: "09:45", end: "11:00", status: booking.StatusInReview, techSupport: true})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{Target: "RESERVED"})

	require.True(t, domain.IsCode(err, domain.CodeCapacityExceeded), "got %v", err)
	de, _ := domain.AsDomainError(err)
	usage, ok := de.Details.(*capacity.Usage)
	require.True(t, ok)
	assert.Equal(t, "2026-03-02T09:30", usage.From)
	assert.Equal(t, booking.StatusInReview, store.booking(t, bk.ID()).Status())

	store.capacity.Active = false
	res, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{Target: "RESERVED"})
	require.NoError(t, err)
	assert.Equal(t, "RESERVED", res.Booking.Status)
}

func TestChangeStatus_CapacityFreedByRemovedBooking(t *testing.T) {
	store := newMemStore()
	store.capacity = &capacity.Config{BlockMinutes: 30, SlotsPerBlock: 2, Active: true}
	first := store.seed(t, seed{location: "Lab 1", start: "09:00", end: "09:30", status: booking.StatusReserved, techSupport: true})
	store.seed(t, seed{location: "Lab 2", start: "09:00", end: "09:30", status: booking.StatusReserved, techSupport: true})
	rid := uuid.New()
	third := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "09:30", status: booking.StatusInReview, techSupport: true})
	svc := newStatusService(store, nil)
	req := ChangeStatusRequest{Target: "RESERVED"}

	_, err := svc.ChangeStatus(context.Background(), superuser(), third.ID(), req)

	require.True(t, domain.IsCode(err, domain.CodeCapacityExceeded), "got %v", err)
	de, _ := domain.AsDomainError(err)
	usage, ok := de.Details.(*capacity.Usage)
	require.True(t, ok)
	assert.Equal(t, 2, usage.Used)
	assert.Equal(t, 2, usage.Slots)
	assert.Equal(t, "2026-03-02T09:00", usage.From)

	delete(store.bookings, first.ID())

	res, err := svc.ChangeStatus(context.Background(), superuser(), third.ID(), req)
	require.NoError(t, err)
	assert.Equal(t, "RESERVED", res.Booking.Status)
}

func TestChangeStatus_NoteLongerThanAuditColumnIsRejected(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusInReview})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{
		Target: "RESERVED",
		Note:   strings.Repeat("n", 1001),
	})

	assert.True(t, domain.IsCode(err, domain.CodeValidation), "got %v", err)
	assert.Equal(t, booking.StatusInReview, store.booking(t, bk.ID()).Status())
	assert.Empty(t, store.audits)

	res, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{
		Target: "RESERVED",
		Note:   strings.Repeat("n", 1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "RESERVED", res.Booking.Status)
	assert.Len(t, store.audits[0].Note, 1000)
}

func TestChangeStatus_CapacityFailureDiscardsPreemption(t *testing.T) {
	store := newMemStore()
	store.capacity = &capacity.Config{BlockMinutes: 60, SlotsPerBlock: 1, Active: true}
	rid := uuid.New()
	store.seed(t, seed{location: "Studio", start: "09:00", end: "10:00", status: booking.StatusApproved, techSupport: true})
	store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusReserved, priority: booking.PriorityLow})
	high := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusInReview, priority: booking.PriorityHigh, techSupport: true})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), superuser(), high.ID(), ChangeStatusRequest{Target: "RESERVED"})

	assert.True(t, domain.IsCode(err, domain.CodeCapacityExceeded))
	assert.Empty(t, store.conflicts)
}

func TestChangeStatus_RevertToReviewLowersFlags(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusApproved, space: true, tech: false})
	svc := newStatusService(store, nil)

	res, err := svc.ChangeStatus(context.Background(), actorWith(actor.AuthoritySpaceManager), bk.ID(), ChangeStatusRequest{
		Target:        "IN_REVIEW",
		SpaceApproved: boolPtr(false),
		TechApproved:  boolPtr(true),
	})

	require.NoError(t, err)
	assert.Equal(t, "IN_REVIEW", res.Booking.Status)
	stored := store.booking(t, bk.ID())
	assert.False(t, stored.SpaceApproved())
	assert.False(t, stored.TechApproved())
	assert.Equal(t, []audit.Kind{audit.KindFlagChange, audit.KindStatusChange, audit.KindReprogram}, store.auditKinds())
}

func TestChangeStatus_LoweringForeignFlagIsForbidden(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusApproved, space: true, tech: true})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), actorWith(actor.AuthoritySpaceManager), bk.ID(), ChangeStatusRequest{
		Target:       "IN_REVIEW",
		TechApproved: boolPtr(false),
	})

	assert.True(t, domain.IsCode(err, domain.CodeForbidden))
	assert.Equal(t, booking.StatusApproved, store.booking(t, bk.ID()).Status())
}

func TestChangeStatus_RejectSkipsAvailability(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusApproved})
	bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusInReview})
	svc := newStatusService(store, nil)

	res, err := svc.ChangeStatus(context.Background(), actorWith(actor.AuthorityTechManager), bk.ID(), ChangeStatusRequest{Target: "REJECTED"})

	require.NoError(t, err)
	assert.Equal(t, "REJECTED", res.Booking.Status)
	assert.Equal(t, []audit.Kind{audit.KindStatusChange}, store.auditKinds())
}

func TestChangeStatus_AuditFailureRollsBack(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusReserved, priority: booking.PriorityLow})
	high := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusInReview, priority: booking.PriorityHigh})
	before := store.bookings[high.ID()]
	store.failAudit = true
	notifier := &recordingNotifier{}
	svc := newStatusService(store, notifier)

	_, err := svc.ChangeStatus(context.Background(), superuser(), high.ID(), ChangeStatusRequest{Target: "RESERVED"})

	require.Error(t, err)
	_, isDomain := domain.AsDomainError(err)
	assert.False(t, isDomain)
	assert.Equal(t, before, store.bookings[high.ID()])
	assert.Empty(t, store.conflicts)
	assert.Empty(t, notifier.created)
}

func TestChangeStatus_SlotLockContention(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	bk := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", status: booking.StatusInReview})
	svc := NewStatusService(store.repos().Bookings, store, busyLocker{}, nil, zap.NewNop())

	_, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{Target: "RESERVED"})

	assert.True(t, domain.IsCode(err, domain.CodeConflict))
	assert.Equal(t, booking.StatusInReview, store.booking(t, bk.ID()).Status())
}

func TestChangeStatus_UnknownTarget(t *testing.T) {
	store := newMemStore()
	bk := store.seed(t, seed{location: "Hall", start: "09:00", end: "10:00"})
	svc := newStatusService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), superuser(), bk.ID(), ChangeStatusRequest{Target: "CANCELLED"})
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = svc.ChangeStatus(context.Background(), superuser(), uuid.New(), ChangeStatusRequest{Target: "IN_REVIEW"})
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestGetStatusOptions(t *testing.T) {
	store := newMemStore()
	bk := store.seed(t, seed{location: "Hall", start: "09:00", end: "10:00", status: booking.StatusReserved})
	svc := newStatusService(store, nil)

	opts, err := svc.GetStatusOptions(context.Background(), bk.ID())

	require.NoError(t, err)
	assert.Equal(t, "RESERVED", opts.Current)
	assert.Equal(t, []string{"APPROVED", "REJECTED", "IN_REVIEW"}, opts.Allowed)
}

func TestResolvePriority_OnlyHighTies(t *testing.T) {
	store := newMemStore()
	rid := uuid.New()
	high := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", priority: booking.PriorityHigh})
	medium := store.seed(t, seed{resourceID: &rid, start: "09:00", end: "10:00", priority: booking.PriorityMedium})

	displaced, err := resolvePriority(high, []*booking.Booking{medium})
	require.NoError(t, err)
	assert.Len(t, displaced, 1)

	_, err = conflict.Open(high, medium, uuid.New(), "", testNow)
	assert.NoError(t, err)
}
