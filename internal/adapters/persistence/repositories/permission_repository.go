package repositories

import (
	"context"
	"errors"

	"aegis-identity/internal/adapters/persistence/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// permissionRepository implements PermissionRepository interface
type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

// GetByNames bulk-loads permissions by name
func (r *permissionRepository) GetByNames(ctx context.Context, names []string) ([]models.Permission, error) {
	var perms []models.Permission
	if len(names) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&perms).Error
	return perms, err
}

// GetByIDs bulk-loads permissions by ID
func (r *permissionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Permission, error) {
	var perms []models.Permission
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

// List returns the full vocabulary
func (r *permissionRepository) List(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.WithContext(ctx).Order("name").Find(&perms).Error
	return perms, err
}

// Upsert creates a permission if absent and returns the row either way.
// Used only by the startup seeder - the vocabulary is closed after that.
func (r *permissionRepository) Upsert(ctx context.Context, name string) (*models.Permission, error) {
	var perm models.Permission
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&perm).Error
	if err == nil {
		return &perm, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	perm = models.Permission{Name: name}
	if err := r.db.WithContext(ctx).Create(&perm).Error; err != nil {
		return nil, err
	}
	return &perm, nil
}
