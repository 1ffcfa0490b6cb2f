package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/internal/domain/audit"
	"github.com/roomline/service-booking/internal/domain/capacity"
	"github.com/roomline/service-booking/pkg/domain"
)

// capacityAuditSubject is the fixed audit subject for the singleton config.
var capacityAuditSubject = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// TechCapacityDTO is the response representation of the capacity config.
type TechCapacityDTO struct {
	BlockMinutes  int       `json:"block_minutes"`
	SlotsPerBlock int       `json:"slots_per_block"`
	Active        bool      `json:"active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpdateTechCapacityRequest replaces the capacity config.
type UpdateTechCapacityRequest struct {
	BlockMinutes  int   `json:"block_minutes" validate:"required,min=1,max=1440"`
	SlotsPerBlock int   `json:"slots_per_block" validate:"required,min=1"`
	Active        *bool `json:"active" validate:"required"`
}

// CapacityService manages the technical-support capacity config.
type CapacityService struct {
	repo   capacity.Repository
	uow    UnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

// NewCapacityService creates a new CapacityService.
func NewCapacityService(repo capacity.Repository, uow UnitOfWork, logger *zap.Logger) *CapacityService {
	return &CapacityService{repo: repo, uow: uow, logger: logger, now: time.Now}
}

// GetTechCapacity returns the current config.
func (s *CapacityService) GetTechCapacity(ctx context.Context) (*TechCapacityDTO, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load capacity config: %w", err)
	}
	dto := toTechCapacityDTO(cfg)
	return &dto, nil
}

// UpdateTechCapacity stores a new config on behalf of act.
func (s *CapacityService) UpdateTechCapacity(ctx context.Context, act actor.Actor, req UpdateTechCapacityRequest) (*TechCapacityDTO, error) {
	if !act.Can(actor.CapManageCapacity) {
		return nil, domain.NewForbiddenError("actor may not change technical capacity")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cfg := capacity.Config{
		BlockMinutes:  req.BlockMinutes,
		SlotsPerBlock: req.SlotsPerBlock,
		Active:        *req.Active,
		UpdatedAt:     now,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos Repositories) error {
		prev, err := repos.Capacity.Get(ctx)
		if err != nil {
			return fmt.Errorf("failed to load capacity config: %w", err)
		}
		if err := repos.Capacity.Save(ctx, cfg); err != nil {
			return fmt.Errorf("failed to save capacity config: %w", err)
		}
		entry := audit.NewEntry(capacityAuditSubject, act.ID, audit.KindCapacityChange,
			describeCapacity(prev), describeCapacity(cfg), "", "", now)
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to update capacity config", zap.Error(err))
		return nil, err
	}

	s.logger.Info("capacity config updated",
		zap.Int("block_minutes", cfg.BlockMinutes),
		zap.Int("slots_per_block", cfg.SlotsPerBlock),
		zap.Bool("active", cfg.Active),
	)
	dto := toTechCapacityDTO(cfg)
	return &dto, nil
}

func describeCapacity(c capacity.Config) string {
	return fmt.Sprintf("block=%d slots=%d active=%t", c.BlockMinutes, c.SlotsPerBlock, c.Active)
}

func toTechCapacityDTO(c capacity.Config) TechCapacityDTO {
	return TechCapacityDTO{
		BlockMinutes:  c.BlockMinutes,
		SlotsPerBlock: c.SlotsPerBlock,
		Active:        c.Active,
		UpdatedAt:     c.UpdatedAt,
	}
}
