package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffService handles staff profile business logic. Every mutation
// passes the restriction engine first and lands with its audit row in
// one transaction.
type StaffService struct {
	staffRepo   repositories.StaffRepository
	userRepo    repositories.UserRepository
	permRepo    repositories.PermissionRepository
	activitySvc *ActivityService
	restriction *RestrictionService
	txManager   repositories.TxManager
}

// NewStaffService creates a new staff service
func NewStaffService(
	staffRepo repositories.StaffRepository,
	userRepo repositories.UserRepository,
	permRepo repositories.PermissionRepository,
	activitySvc *ActivityService,
	restriction *RestrictionService,
	txManager repositories.TxManager,
) *StaffService {
	return &StaffService{
		staffRepo:   staffRepo,
		userRepo:    userRepo,
		permRepo:    permRepo,
		activitySvc: activitySvc,
		restriction: restriction,
		txManager:   txManager,
	}
}

// CreateStaffInput represents staff creation input
type CreateStaffInput struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Department  string    `json:"department" validate:"required"`
	Role        string    `json:"role" validate:"required"`
	Permissions []string  `json:"permissions"`
}

// UpdateStaffInput represents staff update input. Nil fields are left
// untouched.
type UpdateStaffInput struct {
	Department  *string   `json:"department"`
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
}

// ListStaffOutput represents list staff output
type ListStaffOutput struct {
	Staff []*models.StaffResponse `json:"staff"`
	Total int64                   `json:"total"`
}

var validRoles = map[string]bool{
	models.RoleSuperuser:  true,
	models.RoleAdmin:      true,
	models.RoleSupport:    true,
	models.RoleCompliance: true,
	models.RoleManager:    true,
	models.RoleGeneral:    true,
}

// Create attaches a staff profile to a user. The superuser singleton
// checks run inside the transaction so concurrent creations are
// serialized by the store; admin profiles can only be created by the
// superuser.
func (s *StaffService) Create(ctx context.Context, actor *models.User, actorStaff *models.Staff, input *CreateStaffInput, meta ClientMeta) (*models.Staff, error) {
	if !validRoles[input.Role] {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrConflict, input.Role)
	}

	targetUser, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if _, err := s.staffRepo.GetByUserID(ctx, input.UserID); err == nil {
		return nil, fmt.Errorf("%w: user already has a staff profile", domain.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Admin profiles are part of the role hierarchy: only the
	// superuser may create them. Superuser creation is governed by the
	// singleton checks below, not by the hierarchy - the profile has no
	// identity yet to self-match against.
	if input.Role == models.RoleAdmin {
		if err := s.restriction.Enforce(actorStaff, &models.Staff{Role: models.RoleAdmin}, ActionCreate); err != nil {
			s.auditDenial(ctx, actor, "create_staff_denied", meta, map[string]string{"reason": "only superuser can manage admins"})
			return nil, err
		}
	}

	staff := &models.Staff{
		UserID:     input.UserID,
		Department: input.Department,
		Role:       input.Role,
	}

	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := s.restriction.EnsureSingleSuperuser(ctx, r.Staff, input.Role, input.Department); err != nil {
			return err
		}

		perms, err := s.resolvePermissions(ctx, r.Permissions, input.Permissions)
		if err != nil {
			return err
		}

		if err := r.Staff.Create(ctx, staff); err != nil {
			return err
		}
		if len(perms) > 0 {
			if err := r.Staff.ReplacePermissions(ctx, staff, perms); err != nil {
				return err
			}
		}

		_, err = s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "create_staff_success",
			Meta:         meta,
			Fields: map[string]string{
				"target":     targetUser.Username,
				"role":       input.Role,
				"department": input.Department,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Staff profile created: %s (%s/%s)", targetUser.Username, staff.Role, staff.Department)
	return staff, nil
}

// GetByID retrieves a staff profile, subject to the view restriction
func (s *StaffService) GetByID(ctx context.Context, actorStaff *models.Staff, id uuid.UUID) (*models.Staff, error) {
	staff, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := s.restriction.Enforce(actorStaff, staff, ActionView); err != nil {
		return nil, err
	}

	return staff, nil
}

// List lists staff profiles. The superuser profile is visible only to
// itself and is filtered out for everyone else.
func (s *StaffService) List(ctx context.Context, actorStaff *models.Staff, offset, limit int) (*ListStaffOutput, error) {
	staffs, total, err := s.staffRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.StaffResponse, 0, len(staffs))
	for _, staff := range staffs {
		if staff.Role == models.RoleSuperuser && (actorStaff == nil || actorStaff.ID != staff.ID) {
			total--
			continue
		}
		responses = append(responses, staff.ToResponse())
	}

	return &ListStaffOutput{Staff: responses, Total: total}, nil
}

// Update mutates a staff profile. The superuser profile's role and
// department are frozen forever, even against itself; promotion to a
// reserved value re-runs the singleton checks inside the transaction.
func (s *StaffService) Update(ctx context.Context, actor *models.User, actorStaff *models.Staff, id uuid.UUID, input *UpdateStaffInput, meta ClientMeta) (*models.Staff, error) {
	staff, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	targetUser, err := s.userRepo.GetByID(ctx, staff.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.restriction.Enforce(actorStaff, staff, ActionEdit); err != nil {
		s.auditDenial(ctx, actor, "update_staff_denied", meta, s.targetField(targetUser))
		return nil, err
	}

	roleChanging := input.Role != nil && *input.Role != staff.Role
	departmentChanging := input.Department != nil && *input.Department != staff.Department
	if err := s.restriction.EnforceFieldFreeze(staff, roleChanging, departmentChanging); err != nil {
		s.auditDenial(ctx, actor, "update_staff_denied", meta, s.targetField(targetUser))
		return nil, err
	}

	if input.Role != nil && !validRoles[*input.Role] {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrConflict, *input.Role)
	}

	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		newRole, newDepartment := staff.Role, staff.Department
		if roleChanging {
			newRole = *input.Role
		}
		if departmentChanging {
			newDepartment = *input.Department
		}

		// Promotion to a reserved value hits the singleton checks.
		checkRole, checkDepartment := "", ""
		if roleChanging {
			checkRole = newRole
		}
		if departmentChanging {
			checkDepartment = newDepartment
		}
		if err := s.restriction.EnsureSingleSuperuser(ctx, r.Staff, checkRole, checkDepartment); err != nil {
			return err
		}

		staff.Role = newRole
		staff.Department = newDepartment

		if err := r.Staff.Update(ctx, staff); err != nil {
			return err
		}

		if input.Permissions != nil {
			perms, err := s.resolvePermissions(ctx, r.Permissions, *input.Permissions)
			if err != nil {
				return err
			}
			if err := r.Staff.ReplacePermissions(ctx, staff, perms); err != nil {
				return err
			}
		}

		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			Target:       targetUser,
			ActivityType: "update_staff_success",
			Meta:         meta,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return staff, nil
}

// Delete removes a staff profile, subject to the delete restriction
func (s *StaffService) Delete(ctx context.Context, actor *models.User, actorStaff *models.Staff, id uuid.UUID, meta ClientMeta) error {
	staff, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	targetUser, err := s.userRepo.GetByID(ctx, staff.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.restriction.Enforce(actorStaff, staff, ActionDelete); err != nil {
		s.auditDenial(ctx, actor, "delete_staff_denied", meta, s.targetField(targetUser))
		return err
	}

	return s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := r.Staff.Delete(ctx, staff.ID); err != nil {
			return err
		}
		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "delete_staff_success",
			Meta:         meta,
			Fields:       s.targetField(targetUser),
		})
		return err
	})
}

// resolvePermissions maps names to vocabulary rows. The vocabulary is
// closed: an unknown name is a client error, not an implicit insert.
func (s *StaffService) resolvePermissions(ctx context.Context, permRepo repositories.PermissionRepository, names []string) ([]models.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	perms, err := permRepo.GetByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(perms) != len(names) {
		return nil, fmt.Errorf("%w: unknown permission in set", domain.ErrNotFound)
	}
	return perms, nil
}

func (s *StaffService) targetField(targetUser *models.User) map[string]string {
	if targetUser == nil {
		return nil
	}
	return map[string]string{"target": targetUser.Username}
}

func (s *StaffService) auditDenial(ctx context.Context, actor *models.User, activityType string, meta ClientMeta, fields map[string]string) {
	if _, err := s.activitySvc.Record(ctx, RecordInput{
		Actor:        actor,
		ActivityType: activityType,
		Meta:         meta,
		Fields:       fields,
	}); err != nil {
		log.Printf("⚠️ audit record lost (%s): %v", activityType, err)
	}
}
