package repositories

import (
	"context"

	"aegis-identity/internal/adapters/persistence/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// activityLogRepository implements ActivityLogRepository interface.
// The store is append-only: there are no update or delete paths.
type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

// Create appends an audit record
func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List lists audit records, newest first
func (r *activityLogRepository) List(ctx context.Context, offset, limit int) ([]*models.ActivityLog, int64, error) {
	var entries []*models.ActivityLog
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListByUserID lists audit records for one actor, newest first
func (r *activityLogRepository) ListByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.ActivityLog, int64, error) {
	var entries []*models.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
