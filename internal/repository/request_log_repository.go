package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourdesk/service-booking/internal/domain/auditlog"
)

// RequestLogModel is the GORM model for the request_logs table.
type RequestLogModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	Action    string    `gorm:"type:varchar(30);not null"`
	Notes     string    `gorm:"type:text;not null"`
	Actor     string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName sets the table name.
func (RequestLogModel) TableName() string { return "request_logs" }

// GormRequestLogRepository implements auditlog.Store using GORM. Rows are
// only ever inserted.
type GormRequestLogRepository struct {
	db *gorm.DB
}

var _ auditlog.Store = (*GormRequestLogRepository)(nil)

// NewGormRequestLogRepository creates a new GormRequestLogRepository.
func NewGormRequestLogRepository(db *gorm.DB) *GormRequestLogRepository {
	return &GormRequestLogRepository{db: db}
}

// Append persists a new log entry.
func (r *GormRequestLogRepository) Append(ctx context.Context, entry *auditlog.Entry) error {
	if err := r.db.WithContext(ctx).Create(toLogModel(entry)).Error; err != nil {
		return fmt.Errorf("failed to append request log: %w", err)
	}
	return nil
}

// ListByRequest returns a request's entries oldest first. Ids are UUIDv7, so
// they break ties between entries sharing a timestamp in insertion order.
func (r *GormRequestLogRepository) ListByRequest(ctx context.Context, requestID uuid.UUID, actions ...auditlog.Action) ([]*auditlog.Entry, error) {
	query := r.db.WithContext(ctx).Where("request_id = ?", requestID)
	if len(actions) > 0 {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		query = query.Where("action IN ?", names)
	}

	var models []RequestLogModel
	if err := query.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}

	entries := make([]*auditlog.Entry, len(models))
	for i := range models {
		e, err := toLogDomain(&models[i])
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}

func toLogModel(e *auditlog.Entry) *RequestLogModel {
	return &RequestLogModel{
		ID:        e.ID(),
		RequestID: e.RequestID(),
		Action:    string(e.Action()),
		Notes:     e.Notes(),
		Actor:     e.Actor(),
		CreatedAt: e.CreatedAt(),
	}
}

func toLogDomain(m *RequestLogModel) (*auditlog.Entry, error) {
	action, err := auditlog.ParseAction(m.Action)
	if err != nil {
		return nil, err
	}
	return auditlog.Reconstruct(m.ID, m.RequestID, action, m.Notes, m.Actor, m.CreatedAt), nil
}
