package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/pkg/domain"
)

// ResourceModel is the GORM read model for the resources table. Rows are
// maintained by the catalog owner; this service only reads them.
type ResourceModel struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name                string    `gorm:"not null;size:200"`
	Active              bool      `gorm:"not null;default:true"`
	DefaultBufferBefore int       `gorm:"not null;default:0"`
	DefaultBufferAfter  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for the GORM model.
func (ResourceModel) TableName() string {
	return "resources"
}

// GormResourceCatalog implements application.ResourceCatalog.
type GormResourceCatalog struct {
	db *gorm.DB
}

// NewGormResourceCatalog creates a new GormResourceCatalog.
func NewGormResourceCatalog(db *gorm.DB) *GormResourceCatalog {
	return &GormResourceCatalog{db: db}
}

// Lookup returns the resource with id.
func (c *GormResourceCatalog) Lookup(ctx context.Context, id uuid.UUID) (*application.Resource, error) {
	var model ResourceModel
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("resource", id.String())
		}
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}
	return &application.Resource{
		ID:                  model.ID,
		Name:                model.Name,
		Active:              model.Active,
		DefaultBufferBefore: model.DefaultBufferBefore,
		DefaultBufferAfter:  model.DefaultBufferAfter,
	}, nil
}
