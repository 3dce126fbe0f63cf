package services

import (
	"context"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/core/domain"
)

// Actions understood by the restriction engine
const (
	ActionView   = "view"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionCreate = "create"
)

// RestrictionService decides what one staff profile may do to another.
// It runs synchronously before every mutating staff operation and
// before cross-actor audit log reads.
type RestrictionService struct{}

// NewRestrictionService creates a new restriction service
func NewRestrictionService() *RestrictionService {
	return &RestrictionService{}
}

// Enforce applies the role hierarchy for an actor acting on a target.
//
// Superuser targets are self-only: nobody else may act on them at all.
// Admin targets are manageable only by the superuser. Every other role
// is governed purely by the permission check, not by this hierarchy.
func (s *RestrictionService) Enforce(actor, target *models.Staff, action string) error {
	if target == nil {
		return nil
	}

	switch target.Role {
	case models.RoleSuperuser:
		return s.enforceSuperuserRules(actor, target, action)
	case models.RoleAdmin:
		return s.enforceAdminRules(actor)
	default:
		return nil
	}
}

// enforceSuperuserRules: only the superuser may touch its own record.
// Field freezing for role/department is enforced separately at the
// update path, where the changed fields are known.
func (s *RestrictionService) enforceSuperuserRules(actor, target *models.Staff, action string) error {
	if actor == nil || actor.ID != target.ID {
		return domain.ErrForbidden
	}
	return nil
}

// enforceAdminRules: only the superuser can manage admins
func (s *RestrictionService) enforceAdminRules(actor *models.Staff) error {
	if actor == nil || actor.Role != models.RoleSuperuser {
		return domain.ErrForbidden
	}
	return nil
}

// EnforceFieldFreeze rejects changes to the superuser profile's role or
// department. The two fields are permanently frozen after creation,
// even against the superuser itself.
func (s *RestrictionService) EnforceFieldFreeze(target *models.Staff, roleChanging, departmentChanging bool) error {
	if target == nil || target.Role != models.RoleSuperuser {
		return nil
	}
	if roleChanging || departmentChanging {
		return domain.ErrForbidden
	}
	return nil
}

// EnsureSingleSuperuser fails when a staff profile with the reserved
// superuser role or the reserved superuser department already exists.
// The two checks are independent singleton constraints that happen to
// share a sentinel value, so both always run. Callers must invoke this
// inside the transaction that performs the create/promote so the store
// serializes concurrent attempts.
func (s *RestrictionService) EnsureSingleSuperuser(ctx context.Context, staffRepo repositories.StaffRepository, role, department string) error {
	if role == models.RoleSuperuser {
		exists, err := staffRepo.ExistsByRole(ctx, models.RoleSuperuser)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateSuperuser
		}
	}

	if department == models.DepartmentSuperuser {
		exists, err := staffRepo.ExistsByDepartment(ctx, models.DepartmentSuperuser)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateSuperuserDepartment
		}
	}

	return nil
}
