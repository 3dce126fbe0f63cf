package repositories

import (
	"context"

	"aegis-identity/internal/adapters/persistence/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// staffRepository implements StaffRepository interface
type staffRepository struct {
	db *gorm.DB
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

// Create creates a new staff profile
func (r *staffRepository) Create(ctx context.Context, staff *models.Staff) error {
	return r.db.WithContext(ctx).Create(staff).Error
}

// GetByID gets a staff profile by ID with its permission set loaded
func (r *staffRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	var staff models.Staff
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("id = ?", id).
		First(&staff).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

// GetByUserID gets the staff profile attached to a user
func (r *staffRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Staff, error) {
	var staff models.Staff
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("user_id = ?", userID).
		First(&staff).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

// Update updates a staff profile
func (r *staffRepository) Update(ctx context.Context, staff *models.Staff) error {
	return r.db.WithContext(ctx).Omit("Permissions").Save(staff).Error
}

// Delete removes a staff profile and its permission join rows
func (r *staffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Select("Permissions").Delete(&models.Staff{ID: id}).Error
}

// List lists staff profiles with pagination
func (r *staffRepository) List(ctx context.Context, offset, limit int) ([]*models.Staff, int64, error) {
	var staffs []*models.Staff
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Staff{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&staffs).Error
	if err != nil {
		return nil, 0, err
	}

	return staffs, total, nil
}

// ExistsByRole checks whether any staff profile carries the given role
func (r *staffRepository) ExistsByRole(ctx context.Context, role string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Staff{}).Where("role = ?", role).Count(&count).Error
	return count > 0, err
}

// ExistsByDepartment checks whether any staff profile carries the given department
func (r *staffRepository) ExistsByDepartment(ctx context.Context, department string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Staff{}).Where("department = ?", department).Count(&count).Error
	return count > 0, err
}

// ReplacePermissions swaps the staff permission set atomically
func (r *staffRepository) ReplacePermissions(ctx context.Context, staff *models.Staff, perms []models.Permission) error {
	if err := r.db.WithContext(ctx).Model(staff).Association("Permissions").Replace(perms); err != nil {
		return err
	}
	staff.Permissions = perms
	return nil
}
