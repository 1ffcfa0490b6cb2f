package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/conflict"
	"github.com/roomline/service-booking/pkg/domain"
)

// ResolveConflictRequest carries a human decision on a conflict record.
// Target is the status suggested for the losing booking; empty means REJECTED.
type ResolveConflictRequest struct {
	Decision string `json:"decision" validate:"required,oneof=KEEP_NEW KEEP_DISPLACED"`
	Target   string `json:"target" validate:"omitempty,oneof=REJECTED IN_REVIEW"`
	Reason   string `json:"reason" validate:"max=500"`
}

// FollowUp names the status change the caller is expected to apply next.
// Resolution never changes bookings itself.
type FollowUp struct {
	BookingID    uuid.UUID `json:"booking_id"`
	TargetStatus string    `json:"target_status"`
}

// ResolveConflictResult is the outcome of a resolved conflict.
type ResolveConflictResult struct {
	ConflictCode string   `json:"conflict_code"`
	Decision     string   `json:"decision"`
	Status       string   `json:"status"`
	FollowUp     FollowUp `json:"follow_up"`
}

// ConflictService exposes the conflict ledger.
type ConflictService struct {
	conflicts conflict.Repository
	bookings  booking.BookingRepository
	uow       UnitOfWork
	notifier  NotificationSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewConflictService creates a new ConflictService.
func NewConflictService(
	conflicts conflict.Repository,
	bookings booking.BookingRepository,
	uow UnitOfWork,
	notifier NotificationSink,
	logger *zap.Logger,
) *ConflictService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &ConflictService{
		conflicts: conflicts,
		bookings:  bookings,
		uow:       uow,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// ResolveConflict closes an OPEN record with the given decision.
func (s *ConflictService) ResolveConflict(ctx context.Context, act actor.Actor, code string, req ResolveConflictRequest) (*ResolveConflictResult, error) {
	if !act.Can(actor.CapResolveConflict) {
		return nil, domain.NewForbiddenError("actor may not resolve conflicts")
	}
	req.Decision = strings.ToUpper(strings.TrimSpace(req.Decision))
	req.Target = strings.ToUpper(strings.TrimSpace(req.Target))
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	decision, err := conflict.ParseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	target := booking.StatusRejected
	if req.Target != "" {
		target = booking.BookingStatus(req.Target)
	}

	var resolved *conflict.Record
	err = s.uow.Do(ctx, func(ctx context.Context, repos Repositories) error {
		rec, err := repos.Conflicts.FindByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		from := rec.Status()
		if err := rec.Resolve(decision, act.ID, req.Reason, s.now()); err != nil {
			return err
		}
		if err := repos.Conflicts.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to update conflict record: %w", err)
		}
		entry := audit.NewEntry(rec.ID(), act.ID, audit.KindConflictResolved,
			string(from), string(decision), req.Reason, rec.Code(), s.now())
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		resolved = rec
		return nil
	})
	if err != nil {
		if _, ok := domain.AsDomainError(err); !ok {
			s.logger.Error("conflict resolution failed", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	s.notifier.ConflictResolved(ctx, resolved)

	loser, _ := resolved.LosingBookingID()
	s.logger.Info("conflict resolved",
		zap.String("code", resolved.Code()),
		zap.String("decision", string(decision)),
		zap.String("losing_booking_id", loser.String()),
	)

	return &ResolveConflictResult{
		ConflictCode: resolved.Code(),
		Decision:     string(decision),
		Status:       string(resolved.Status()),
		FollowUp: FollowUp{
			BookingID:    loser,
			TargetStatus: string(target),
		},
	}, nil
}

// GetConflict retrieves a record by code.
func (s *ConflictService) GetConflict(ctx context.Context, code string) (*ConflictDTO, error) {
	rec, err := s.conflicts.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	dto := toConflictDTO(rec)
	return &dto, nil
}

// ListBookingConflicts lists records where the booking displaced or was displaced.
func (s *ConflictService) ListBookingConflicts(ctx context.Context, bookingID uuid.UUID) ([]ConflictDTO, error) {
	if _, err := s.bookings.FindByID(ctx, bookingID); err != nil {
		return nil, err
	}
	records, err := s.conflicts.FindByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	return toConflictDTOs(records), nil
}
