package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/conflict"
	"github.com/roomline/service-booking/pkg/domain"
	"github.com/roomline/service-booking/pkg/redislock"
)

// ChangeStatusRequest asks for a status transition. The approval fields are
// only read when the target is APPROVED (raise) or IN_REVIEW (lower).
type ChangeStatusRequest struct {
	Target        string `json:"target" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
	Note          string `json:"note" validate:"max=1000"`
	SpaceApproved *bool  `json:"space_approved"`
	TechApproved  *bool  `json:"tech_approved"`
}

// ChangeStatusResult is the outcome of a committed status change attempt.
type ChangeStatusResult struct {
	Booking         BookingDTO    `json:"booking"`
	Changed         bool          `json:"changed"`
	ApprovalPending bool          `json:"approval_pending"`
	Missing         []string      `json:"missing,omitempty"`
	Conflicts       []ConflictDTO `json:"conflicts,omitempty"`
}

// StatusOptions lists the statuses reachable from the current one.
type StatusOptions struct {
	BookingID uuid.UUID `json:"booking_id"`
	Current   string    `json:"current"`
	Allowed   []string  `json:"allowed"`
}

// StatusService drives bookings through the approval state machine.
type StatusService struct {
	bookings     booking.BookingRepository
	uow          UnitOfWork
	locker       SlotLocker
	notifier     NotificationSink
	availability AvailabilityChecker
	capacity     CapacityGate
	logger       *zap.Logger
	now          func() time.Time
}

// NewStatusService creates a new StatusService. A nil locker or notifier is
// replaced by a no-op.
func NewStatusService(
	bookings booking.BookingRepository,
	uow UnitOfWork,
	locker SlotLocker,
	notifier NotificationSink,
	logger *zap.Logger,
) *StatusService {
	if locker == nil {
		locker = NoopLocker{}
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &StatusService{
		bookings: bookings,
		uow:      uow,
		locker:   locker,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// GetStatusOptions returns the current status of a booking and its allowed targets.
func (s *StatusService) GetStatusOptions(ctx context.Context, bookingID uuid.UUID) (*StatusOptions, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	targets := bk.Status().AllowedTargets()
	allowed := make([]string, len(targets))
	for i, t := range targets {
		allowed[i] = string(t)
	}
	return &StatusOptions{
		BookingID: bk.ID(),
		Current:   string(bk.Status()),
		Allowed:   allowed,
	}, nil
}

// ChangeStatus applies req to the booking on behalf of act. Every write
// happens in one unit of work; notifications follow the commit.
func (s *StatusService) ChangeStatus(ctx context.Context, act actor.Actor, bookingID uuid.UUID, req ChangeStatusRequest) (*ChangeStatusResult, error) {
	if !act.Can(actor.CapChangeStatus) {
		return nil, domain.NewForbiddenError("actor may not change booking status")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	target, err := booking.ParseBookingStatus(req.Target)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if target.IsBlocking() {
		release, err := s.lockSlot(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release slot lock", zap.String("booking_id", bookingID.String()), zap.Error(err))
			}
		}()
	}

	var (
		result  *ChangeStatusResult
		created []*conflict.Record
	)
	err = s.uow.Do(ctx, func(ctx context.Context, repos Repositories) error {
		t := &transition{
			svc:    s,
			repos:  repos,
			actor:  act,
			req:    req,
			target: target,
			now:    s.now().UTC(),
		}
		var err error
		result, created, err = t.run(ctx, bookingID)
		return err
	})
	if err != nil {
		if _, ok := domain.AsDomainError(err); ok {
			s.logger.Warn("status change rejected",
				zap.String("booking_id", bookingID.String()),
				zap.String("target", string(target)),
				zap.Error(err),
			)
			return nil, err
		}
		s.logger.Error("status change failed", zap.String("booking_id", bookingID.String()), zap.Error(err))
		return nil, err
	}

	for _, rec := range created {
		s.notifier.ConflictCreated(ctx, rec)
	}

	if result.Changed {
		s.logger.Info("booking status changed",
			zap.String("booking_id", bookingID.String()),
			zap.String("status", result.Booking.Status),
			zap.Int("conflicts_opened", len(created)),
		)
	}
	return result, nil
}

func (s *StatusService) lockSlot(ctx context.Context, bookingID uuid.UUID) (func(context.Context) error, error) {
	if _, ok := s.locker.(NoopLocker); ok {
		return func(context.Context) error { return nil }, nil
	}
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsResourceBound() {
		return func(context.Context) error { return nil }, nil
	}
	key := fmt.Sprintf("slot:%s:%s", bk.ResourceID(), booking.FormatDate(bk.Date()))
	release, err := s.locker.Acquire(ctx, key)
	if errors.Is(err, redislock.ErrNotAcquired) {
		return nil, domain.NewConflictError("another change for this resource and date is in progress")
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

// transition carries the state of one ChangeStatus call inside its unit of work.
type transition struct {
	svc    *StatusService
	repos  Repositories
	actor  actor.Actor
	req    ChangeStatusRequest
	target booking.BookingStatus
	now    time.Time

	entries []audit.Entry
	flipped bool
}

func (t *transition) run(ctx context.Context, bookingID uuid.UUID) (*ChangeStatusResult, []*conflict.Record, error) {
	bk, err := t.repos.Bookings.FindByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	from := bk.Status()
	if !from.CanTransitionTo(t.target) {
		return nil, nil, domain.NewInvalidStateError(string(from), string(t.target))
	}

	var created []*conflict.Record
	switch t.target {
	case booking.StatusApproved:
		if err := t.applyFlags(bk, true); err != nil {
			return nil, nil, err
		}
		if missing := bk.MissingApprovals(); len(missing) > 0 {
			if err := t.commit(ctx, bk); err != nil {
				return nil, nil, err
			}
			names := make([]string, len(missing))
			for i, d := range missing {
				names[i] = string(d)
			}
			return &ChangeStatusResult{
				Booking:         toBookingDTO(bk),
				ApprovalPending: true,
				Missing:         names,
			}, nil, nil
		}
		if created, err = t.guardBlocking(ctx, bk); err != nil {
			return nil, nil, err
		}
	case booking.StatusReserved:
		if created, err = t.guardBlocking(ctx, bk); err != nil {
			return nil, nil, err
		}
	case booking.StatusInReview:
		if err := t.applyFlags(bk, false); err != nil {
			return nil, nil, err
		}
	}

	if err := bk.TransitionTo(t.target, t.now); err != nil {
		return nil, nil, err
	}
	t.record(bk.ID(), audit.KindStatusChange, string(from), string(t.target))
	if t.target == booking.StatusInReview && from.IsBlocking() {
		t.record(bk.ID(), audit.KindReprogram, string(from), string(t.target))
	}
	t.flipped = true

	if err := t.commit(ctx, bk); err != nil {
		return nil, nil, err
	}

	return &ChangeStatusResult{
		Booking:   toBookingDTO(bk),
		Changed:   true,
		Conflicts: toConflictDTOs(created),
	}, created, nil
}

// applyFlags moves approval flags in one direction only. raise=true honours
// true values in the request, raise=false honours false values; the rest of
// the request is ignored.
func (t *transition) applyFlags(bk *booking.Booking, raise bool) error {
	requested := map[booking.ApprovalDomain]*bool{
		booking.ApprovalSpace: t.req.SpaceApproved,
		booking.ApprovalTech:  t.req.TechApproved,
	}
	for _, d := range booking.ApprovalDomains() {
		v := requested[d]
		if v == nil || *v != raise || bk.Approval(d) == raise {
			continue
		}
		if !t.actor.Can(capabilityFor(d)) {
			return domain.NewForbiddenError(fmt.Sprintf("actor may not change %s", d))
		}
		bk.SetApproval(d, raise, t.now)
		t.record(bk.ID(), audit.KindFlagChange,
			fmt.Sprintf("%s=%s", d, strconv.FormatBool(!raise)),
			fmt.Sprintf("%s=%s", d, strconv.FormatBool(raise)),
		)
		t.flipped = true
	}
	return nil
}

func capabilityFor(d booking.ApprovalDomain) actor.Capability {
	if d == booking.ApprovalSpace {
		return actor.CapSetSpaceApproval
	}
	return actor.CapSetTechApproval
}

// guardBlocking runs availability, preemption and the capacity gate for a
// booking about to enter a blocking status. Conflict records are persisted
// only once every guard has passed.
func (t *transition) guardBlocking(ctx context.Context, bk *booking.Booking) ([]*conflict.Record, error) {
	id := bk.ID()
	result, colliding, err := t.svc.availability.Check(ctx, t.repos.Bookings, AvailabilityQuery{
		ResourceID:   bk.ResourceID(),
		Date:         bk.Date(),
		Start:        bk.Start(),
		End:          bk.End(),
		BufferBefore: bk.BufferBefore(),
		BufferAfter:  bk.BufferAfter(),
		ExcludeID:    &id,
	})
	if err != nil {
		return nil, err
	}

	var displaced []*booking.Booking
	if !result.Available {
		if !canPreempt(bk) {
			return nil, domain.NewAvailabilityConflictError(
				fmt.Sprintf("booking %s is not available: %s", bk.BookingNumber(), result.Reason),
				result,
			)
		}
		if displaced, err = resolvePriority(bk, colliding); err != nil {
			return nil, err
		}
	}

	verdict, err := t.svc.capacity.Evaluate(ctx, t.repos, bk)
	if err != nil {
		return nil, err
	}
	if !verdict.Allowed {
		return nil, domain.NewCapacityExceededError(verdict.Saturated.Message(), verdict.Saturated)
	}

	created := make([]*conflict.Record, 0, len(displaced))
	for _, other := range displaced {
		rec, err := conflict.Open(bk, other, t.actor.ID, t.req.Reason, t.now)
		if err != nil {
			return nil, err
		}
		if err := t.repos.Conflicts.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to save conflict record: %w", err)
		}
		t.record(bk.ID(), audit.KindConflictCreated, other.ID().String(), rec.Code())
		created = append(created, rec)
	}
	return created, nil
}

func (t *transition) record(subject uuid.UUID, kind audit.Kind, from, to string) {
	t.entries = append(t.entries, audit.NewEntry(subject, t.actor.ID, kind, from, to, t.req.Reason, t.req.Note, t.now))
}

// commit persists the booking and the pending audit entries when anything changed.
func (t *transition) commit(ctx context.Context, bk *booking.Booking) error {
	if !t.flipped {
		return nil
	}
	bk.IncrementVersion()
	if err := t.repos.Bookings.Update(ctx, bk); err != nil {
		return err
	}
	for _, e := range t.entries {
		if err := t.repos.Audit.Append(ctx, e); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
	}
	t.entries = nil
	return nil
}
