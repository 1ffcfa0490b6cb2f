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
	"github.com/roomline/service-booking/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingNumber       string     `gorm:"uniqueIndex;not null;size:20"`
	Title               string     `gorm:"not null;size:200"`
	RequesterID         uuid.UUID  `gorm:"type:uuid;not null"`
	ResourceID          *uuid.UUID `gorm:"type:uuid;index:idx_bookings_resource_date_status,priority:1"`
	Location            string     `gorm:"not null;size:300;default:''"`
	BookingDate         time.Time  `gorm:"type:date;not null;index:idx_bookings_resource_date_status,priority:2"`
	StartMinute         int        `gorm:"not null"`
	EndMinute           int        `gorm:"not null"`
	BufferBefore        int        `gorm:"not null;default:0"`
	BufferAfter         int        `gorm:"not null;default:0"`
	Status              string     `gorm:"not null;size:20;index:idx_bookings_resource_date_status,priority:3"`
	SpaceApproved       bool       `gorm:"not null;default:false"`
	TechApproved        bool       `gorm:"not null;default:false"`
	Priority            string     `gorm:"not null;size:10;default:'MEDIUM'"`
	RequiresTechSupport bool       `gorm:"not null;default:false"`
	SupportMode         string     `gorm:"not null;size:20;default:''"`
	Version             int64      `gorm:"not null;default:1"`
	CreatedAt           time.Time  `gorm:"not null"`
	UpdatedAt           time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate retrieves a booking and holds a row lock until the
// surrounding transaction ends.
func (r *GormBookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBookingRepository) findOne(q *gorm.DB, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := q.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindBlockingByResourceAndDate lists RESERVED and APPROVED bookings for one
// resource and date.
func (r *GormBookingRepository) FindBlockingByResourceAndDate(ctx context.Context, resourceID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("resource_id = ? AND booking_date = ? AND status IN ?",
			resourceID, bookingDomain.FormatDate(date), blockingStatuses())
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var models []BookingModel
	if err := q.Order("start_minute - buffer_before, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find blocking bookings: %w", err)
	}
	return toDomainBookings(models)
}

// FindBlockingTechSupportByDate lists blocking bookings that need technical
// support on date, whatever their resource or location.
func (r *GormBookingRepository) FindBlockingTechSupportByDate(ctx context.Context, date time.Time, excludeID *uuid.UUID) ([]*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("booking_date = ? AND requires_tech_support = ? AND status IN ?",
			bookingDomain.FormatDate(date), true, blockingStatuses())
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var models []BookingModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find tech-support bookings: %w", err)
	}
	return toDomainBookings(models)
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// IncrementVersion has already run, so the stored row holds version-1.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"space_approved": model.SpaceApproved,
			"tech_approved":  model.TechApproved,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

func blockingStatuses() []string {
	statuses := bookingDomain.BlockingStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	s := bk.Snapshot()
	return &BookingModel{
		ID:                  s.ID,
		BookingNumber:       s.BookingNumber,
		Title:               s.Title,
		RequesterID:         s.RequesterID,
		ResourceID:          s.ResourceID,
		Location:            s.Location,
		BookingDate:         s.Date,
		StartMinute:         int(s.Start),
		EndMinute:           int(s.End),
		BufferBefore:        s.BufferBefore,
		BufferAfter:         s.BufferAfter,
		Status:              string(s.Status),
		SpaceApproved:       s.SpaceApproved,
		TechApproved:        s.TechApproved,
		Priority:            string(s.Priority),
		RequiresTechSupport: s.RequiresTechSupport,
		SupportMode:         string(s.SupportMode),
		Version:             s.Version,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}
	priority, err := bookingDomain.ParsePriority(m.Priority)
	if err != nil {
		return nil, err
	}
	mode, err := bookingDomain.ParseSupportMode(m.SupportMode)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(bookingDomain.Snapshot{
		ID:                  m.ID,
		BookingNumber:       m.BookingNumber,
		Title:               m.Title,
		RequesterID:         m.RequesterID,
		ResourceID:          m.ResourceID,
		Location:            m.Location,
		Date:                m.BookingDate,
		Start:               bookingDomain.TimeOfDay(m.StartMinute),
		End:                 bookingDomain.TimeOfDay(m.EndMinute),
		BufferBefore:        m.BufferBefore,
		BufferAfter:         m.BufferAfter,
		Status:              status,
		SpaceApproved:       m.SpaceApproved,
		TechApproved:        m.TechApproved,
		Priority:            priority,
		RequiresTechSupport: m.RequiresTechSupport,
		SupportMode:         mode,
		Version:             m.Version,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
