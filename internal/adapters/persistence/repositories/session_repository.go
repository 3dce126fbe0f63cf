package repositories

import (
	"context"
	"errors"
	"time"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session row. Multiple concurrent sessions per
// user are permitted - no merge with prior rows.
func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// findActive looks up the single active row for token+user. Missing row
// and already-invalidated row both map to ErrSessionNotFound - callers
// must not be able to tell which.
func (r *sessionRepository) findActive(ctx context.Context, tokenHash string, userID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Where("user_id = ?", userID).
		Where("is_valid = ?", true).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Validate returns the active session for token+user. Expiry is checked
// lazily here - an expired row fails even while its validity flag is
// still true.
func (r *sessionRepository) Validate(ctx context.Context, tokenHash string, userID uuid.UUID) (*models.Session, error) {
	session, err := r.findActive(ctx, tokenHash, userID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Invalidate flips the validity flag on the active row for token+user.
// The row is never physically removed.
func (r *sessionRepository) Invalidate(ctx context.Context, tokenHash string, userID uuid.UUID) error {
	session, err := r.findActive(ctx, tokenHash, userID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(session).
		Update("is_valid", false).Error
}

// InvalidateAllByUserID revokes every active session for a user
func (r *sessionRepository) InvalidateAllByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ?", userID).
		Where("is_valid = ?", true).
		Update("is_valid", false).Error
}

// CountActiveByUserID counts live sessions for a user
func (r *sessionRepository) CountActiveByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ?", userID).
		Where("is_valid = ?", true).
		Where("expires_at > ?", time.Now()).
		Count(&count).Error
	return count, err
}

// SweepExpired flips the validity flag on rows already past expiry.
// Pure hygiene: validation checks expiry lazily either way, and rows
// are never deleted.
func (r *sessionRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("is_valid = ?", true).
		Where("expires_at < ?", now).
		Update("is_valid", false)
	return result.RowsAffected, result.Error
}
