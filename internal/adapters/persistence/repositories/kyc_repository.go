package repositories

import (
	"context"

	"aegis-identity/internal/adapters/persistence/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// kycRepository implements KYCRepository interface
type kycRepository struct {
	db *gorm.DB
}

// NewKYCRepository creates a new KYC repository
func NewKYCRepository(db *gorm.DB) KYCRepository {
	return &kycRepository{db: db}
}

// Create records a new KYC submission
func (r *kycRepository) Create(ctx context.Context, kyc *models.KYCVerification) error {
	return r.db.WithContext(ctx).Create(kyc).Error
}

// GetByID gets a KYC submission by ID
func (r *kycRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.KYCVerification, error) {
	var kyc models.KYCVerification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&kyc).Error
	if err != nil {
		return nil, err
	}
	return &kyc, nil
}

// GetLatestByUserID returns the most recent submission for a user
func (r *kycRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCVerification, error) {
	var kyc models.KYCVerification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&kyc).Error
	if err != nil {
		return nil, err
	}
	return &kyc, nil
}

// ListByUserID lists all submissions for a user, newest first
func (r *kycRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.KYCVerification, error) {
	var kycs []*models.KYCVerification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&kycs).Error
	return kycs, err
}

// Update updates a submission (review outcome)
func (r *kycRepository) Update(ctx context.Context, kyc *models.KYCVerification) error {
	return r.db.WithContext(ctx).Save(kyc).Error
}
