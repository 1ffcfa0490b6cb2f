package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	bookingDomain "github.com/roomline/service-booking/internal/domain/booking"
	conflictDomain "github.com/roomline/service-booking/internal/domain/conflict"
	"github.com/roomline/service-booking/pkg/domain"
)

// ConflictModel is the GORM model for the conflict_records table.
type ConflictModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Code         string     `gorm:"uniqueIndex:idx_conflict_records_code;not null;size:20"`
	DisplacingID uuid.UUID  `gorm:"type:uuid;not null;index:idx_conflicts_displacing_status,priority:1"`
	DisplacedID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_conflicts_displaced_status,priority:1"`
	ResourceID   uuid.UUID  `gorm:"type:uuid;not null"`
	WindowDate   time.Time  `gorm:"type:date;not null"`
	WindowFrom   int        `gorm:"not null"`
	WindowTo     int        `gorm:"not null"`
	Status       string     `gorm:"not null;size:20;index:idx_conflicts_displacing_status,priority:2;index:idx_conflicts_displaced_status,priority:2"`
	Decision     *string    `gorm:"size:20"`
	CreatedBy    uuid.UUID  `gorm:"type:uuid;not null"`
	DecidedBy    *uuid.UUID `gorm:"type:uuid"`
	Reason       string     `gorm:"not null;size:500;default:''"`
	CreatedAt    time.Time  `gorm:"not null"`
	ClosedAt     *time.Time
}

// TableName returns the table name for the GORM model.
func (ConflictModel) TableName() string {
	return "conflict_records"
}

// GormConflictRepository is the GORM-based implementation of conflict.Repository.
type GormConflictRepository struct {
	db *gorm.DB
}

// NewGormConflictRepository creates a new GormConflictRepository.
func NewGormConflictRepository(db *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: db}
}

// Save persists a new conflict record.
func (r *GormConflictRepository) Save(ctx context.Context, rec *conflictDomain.Record) error {
	if err := r.db.WithContext(ctx).Create(toConflictModel(rec)).Error; err != nil {
		return fmt.Errorf("failed to save conflict record: %w", err)
	}
	return nil
}

// Update stores the resolution fields. Only OPEN rows are touched so a record
// can never be resolved twice.
func (r *GormConflictRepository) Update(ctx context.Context, rec *conflictDomain.Record) error {
	model := toConflictModel(rec)
	result := r.db.WithContext(ctx).
		Model(&ConflictModel{}).
		Where("id = ? AND status = ?", model.ID, string(conflictDomain.StatusOpen)).
		Updates(map[string]interface{}{
			"status":     model.Status,
			"decision":   model.Decision,
			"decided_by": model.DecidedBy,
			"reason":     model.Reason,
			"closed_at":  model.ClosedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update conflict record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("conflict record was resolved by another transaction")
	}
	return nil
}

// FindByCode retrieves a record by its unique code.
func (r *GormConflictRepository) FindByCode(ctx context.Context, code string) (*conflictDomain.Record, error) {
	return r.findOne(r.db.WithContext(ctx), code)
}

// FindByCodeForUpdate retrieves a record and locks its row.
func (r *GormConflictRepository) FindByCodeForUpdate(ctx context.Context, code string) (*conflictDomain.Record, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), code)
}

func (r *GormConflictRepository) findOne(q *gorm.DB, code string) (*conflictDomain.Record, error) {
	var model ConflictModel
	if err := q.Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("conflict", code)
		}
		return nil, fmt.Errorf("failed to find conflict by code: %w", err)
	}
	return toDomainConflict(&model)
}

// FindByBooking lists records naming the booking on either side, newest first.
func (r *GormConflictRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID) ([]*conflictDomain.Record, error) {
	var models []ConflictModel
	if err := r.db.WithContext(ctx).
		Where("displacing_id = ? OR displaced_id = ?", bookingID, bookingID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find conflicts for booking: %w", err)
	}

	records := make([]*conflictDomain.Record, len(models))
	for i := range models {
		rec, err := toDomainConflict(&models[i])
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// --- Conversion Helpers ---

func toConflictModel(rec *conflictDomain.Record) *ConflictModel {
	s := rec.Snapshot()
	var decision *string
	if s.Decision != nil {
		d := string(*s.Decision)
		decision = &d
	}
	return &ConflictModel{
		ID:           s.ID,
		Code:         s.Code,
		DisplacingID: s.DisplacingID,
		DisplacedID:  s.DisplacedID,
		ResourceID:   s.ResourceID,
		WindowDate:   s.WindowDate,
		WindowFrom:   int(s.WindowFrom),
		WindowTo:     int(s.WindowTo),
		Status:       string(s.Status),
		Decision:     decision,
		CreatedBy:    s.CreatedBy,
		DecidedBy:    s.DecidedBy,
		Reason:       s.Reason,
		CreatedAt:    s.CreatedAt,
		ClosedAt:     s.ClosedAt,
	}
}

func toDomainConflict(m *ConflictModel) (*conflictDomain.Record, error) {
	var decision *conflictDomain.Decision
	if m.Decision != nil {
		d, err := conflictDomain.ParseDecision(*m.Decision)
		if err != nil {
			return nil, err
		}
		decision = &d
	}
	return conflictDomain.Reconstruct(conflictDomain.Snapshot{
		ID:           m.ID,
		Code:         m.Code,
		DisplacingID: m.DisplacingID,
		DisplacedID:  m.DisplacedID,
		ResourceID:   m.ResourceID,
		WindowDate:   bookingDomain.NormalizeDate(m.WindowDate),
		WindowFrom:   bookingDomain.TimeOfDay(m.WindowFrom),
		WindowTo:     bookingDomain.TimeOfDay(m.WindowTo),
		Status:       conflictDomain.Status(m.Status),
		Decision:     decision,
		CreatedBy:    m.CreatedBy,
		DecidedBy:    m.DecidedBy,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt,
		ClosedAt:     m.ClosedAt,
	}), nil
}
