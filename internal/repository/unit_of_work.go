package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/roomline/service-booking/internal/application"
)

// GormUnitOfWork runs application work inside a database transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do runs fn with repositories bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// NewRepositories binds every store to db.
func NewRepositories(db *gorm.DB) application.Repositories {
	return application.Repositories{
		Bookings:  NewGormBookingRepository(db),
		Conflicts: NewGormConflictRepository(db),
		Capacity:  NewGormCapacityRepository(db),
		Audit:     NewGormAuditRepository(db),
	}
}

// Models lists the GORM models for AutoMigrate in development.
func Models() []interface{} {
	return []interface{}{
		&ResourceModel{},
		&BookingModel{},
		&ConflictModel{},
		&TechCapacityModel{},
		&AuditModel{},
	}
}
