package repositories

import (
	"context"

	"aegis-identity/internal/adapters/persistence/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// apiKeyRepository implements APIKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// Create creates a new API key
func (r *apiKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

// GetByID gets an API key by ID with permissions loaded
func (r *apiKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("id = ?", id).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetByKeyHash gets an active API key by its hash
func (r *apiKeyRepository) GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("key_hash = ?", keyHash).
		Where("is_active = ?", true).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListByUserID lists API keys owned by a user
func (r *apiKeyRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

// Delete removes an API key and its permission join rows
func (r *apiKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Select("Permissions").Delete(&models.APIKey{ID: id}).Error
}
