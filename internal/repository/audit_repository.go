package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomline/service-booking/internal/domain/audit"
)

// AuditModel is the GORM model for the audit_entries table.
type AuditModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entries_subject,priority:1"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null"`
	Kind      string    `gorm:"not null;size:30"`
	FromValue string    `gorm:"not null;size:100;default:''"`
	ToValue   string    `gorm:"not null;size:100;default:''"`
	Reason    string    `gorm:"not null;size:500;default:''"`
	Note      string    `gorm:"not null;size:1000;default:''"`
	CreatedAt time.Time `gorm:"not null;index:idx_audit_entries_subject,priority:2"`
}

// TableName returns the table name for the GORM model.
func (AuditModel) TableName() string {
	return "audit_entries"
}

// GormAuditRepository appends audit entries and reads them back per subject.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository.
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append writes one entry.
func (r *GormAuditRepository) Append(ctx context.Context, e audit.Entry) error {
	model := AuditModel{
		ID:        e.ID,
		SubjectID: e.SubjectID,
		ActorID:   e.ActorID,
		Kind:      string(e.Kind),
		FromValue: e.From,
		ToValue:   e.To,
		Reason:    e.Reason,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// FindBySubject lists entries for one subject in the order they were written.
func (r *GormAuditRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]audit.Entry, error) {
	var models []AuditModel
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at, id").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}

	entries := make([]audit.Entry, len(models))
	for i, m := range models {
		entries[i] = audit.Entry{
			ID:        m.ID,
			SubjectID: m.SubjectID,
			ActorID:   m.ActorID,
			Kind:      audit.Kind(m.Kind),
			From:      m.FromValue,
			To:        m.ToValue,
			Reason:    m.Reason,
			Note:      m.Note,
			CreatedAt: m.CreatedAt,
		}
	}
	return entries, nil
}
