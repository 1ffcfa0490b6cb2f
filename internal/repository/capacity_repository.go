package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roomline/service-booking/internal/domain/capacity"
)

// capacityRowID is the primary key of the singleton config row.
const capacityRowID = 1

// TechCapacityModel is the GORM model for the tech_capacity_config table.
type TechCapacityModel struct {
	ID            int       `gorm:"primaryKey;autoIncrement:false"`
	BlockMinutes  int       `gorm:"not null"`
	SlotsPerBlock int       `gorm:"not null"`
	Active        bool      `gorm:"not null;default:false"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TechCapacityModel) TableName() string {
	return "tech_capacity_config"
}

// GormCapacityRepository stores the capacity config in a single row.
type GormCapacityRepository struct {
	db *gorm.DB
}

// NewGormCapacityRepository creates a new GormCapacityRepository.
func NewGormCapacityRepository(db *gorm.DB) *GormCapacityRepository {
	return &GormCapacityRepository{db: db}
}

// Get returns the stored config, or the inactive default when the row is missing.
func (r *GormCapacityRepository) Get(ctx context.Context) (capacity.Config, error) {
	var model TechCapacityModel
	if err := r.db.WithContext(ctx).Where("id = ?", capacityRowID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return capacity.DefaultConfig(), nil
		}
		return capacity.Config{}, fmt.Errorf("failed to load capacity config: %w", err)
	}
	return capacity.Config{
		BlockMinutes:  model.BlockMinutes,
		SlotsPerBlock: model.SlotsPerBlock,
		Active:        model.Active,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}

// Save upserts the singleton row.
func (r *GormCapacityRepository) Save(ctx context.Context, cfg capacity.Config) error {
	model := TechCapacityModel{
		ID:            capacityRowID,
		BlockMinutes:  cfg.BlockMinutes,
		SlotsPerBlock: cfg.SlotsPerBlock,
		Active:        cfg.Active,
		UpdatedAt:     cfg.UpdatedAt,
	}
	if model.UpdatedAt.IsZero() {
		model.UpdatedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"block_minutes", "slots_per_block", "active", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to save capacity config: %w", err)
	}
	return nil
}
