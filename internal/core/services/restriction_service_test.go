package services

import (
	"context"
	"testing"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staffWithRole(role, department string) *models.Staff {
	return &models.Staff{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Role:       role,
		Department: department,
	}
}

func TestEnforceSuperuserTargetSelfOnly(t *testing.T) {
	svc := NewRestrictionService()
	superuser := staffWithRole(models.RoleSuperuser, models.DepartmentSuperuser)

	for _, action := range []string{ActionView, ActionEdit, ActionDelete} {
		assert.NoError(t, svc.Enforce(superuser, superuser, action), action)
	}

	admin := staffWithRole(models.RoleAdmin, models.DepartmentIT)
	for _, action := range []string{ActionView, ActionEdit, ActionDelete} {
		err := svc.Enforce(admin, superuser, action)
		assert.ErrorIs(t, err, domain.ErrForbidden, "admin %s on superuser", action)
	}

	// anonymous actor (no staff profile)
	assert.ErrorIs(t, svc.Enforce(nil, superuser, ActionView), domain.ErrForbidden)
}

func TestEnforceAdminTargetSuperuserOnly(t *testing.T) {
	svc := NewRestrictionService()
	superuser := staffWithRole(models.RoleSuperuser, models.DepartmentSuperuser)
	admin := staffWithRole(models.RoleAdmin, models.DepartmentIT)
	otherAdmin := staffWithRole(models.RoleAdmin, models.DepartmentOperations)
	support := staffWithRole(models.RoleSupport, models.DepartmentSupport)

	assert.NoError(t, svc.Enforce(superuser, admin, ActionEdit))
	assert.NoError(t, svc.Enforce(superuser, admin, ActionDelete))

	assert.ErrorIs(t, svc.Enforce(otherAdmin, admin, ActionEdit), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Enforce(support, admin, ActionDelete), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Enforce(nil, admin, ActionView), domain.ErrForbidden)
}

func TestEnforceOrdinaryTargetsUnrestricted(t *testing.T) {
	svc := NewRestrictionService()
	support := staffWithRole(models.RoleSupport, models.DepartmentSupport)
	general := staffWithRole(models.RoleGeneral, models.DepartmentOperations)

	assert.NoError(t, svc.Enforce(general, support, ActionEdit))
	assert.NoError(t, svc.Enforce(nil, support, ActionView))
	assert.NoError(t, svc.Enforce(support, nil, ActionDelete))
}

func TestEnforceFieldFreeze(t *testing.T) {
	svc := NewRestrictionService()
	superuser := staffWithRole(models.RoleSuperuser, models.DepartmentSuperuser)
	admin := staffWithRole(models.RoleAdmin, models.DepartmentIT)

	// frozen even for self
	assert.ErrorIs(t, svc.EnforceFieldFreeze(superuser, true, false), domain.ErrForbidden)
	assert.ErrorIs(t, svc.EnforceFieldFreeze(superuser, false, true), domain.ErrForbidden)
	assert.NoError(t, svc.EnforceFieldFreeze(superuser, false, false))

	// non-superuser profiles are not frozen
	assert.NoError(t, svc.EnforceFieldFreeze(admin, true, true))
}

func TestEnsureSingleSuperuserRoleCheck(t *testing.T) {
	svc := NewRestrictionService()
	staffRepo := newFakeStaffRepo()

	// empty store: both reserved values are free
	require.NoError(t, svc.EnsureSingleSuperuser(context.Background(), staffRepo, models.RoleSuperuser, models.DepartmentSuperuser))

	existing := staffWithRole(models.RoleSuperuser, models.DepartmentSuperuser)
	require.NoError(t, staffRepo.Create(context.Background(), existing))

	err := svc.EnsureSingleSuperuser(context.Background(), staffRepo, models.RoleSuperuser, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateSuperuser)
}

func TestEnsureSingleSuperuserDepartmentCheckIsIndependent(t *testing.T) {
	svc := NewRestrictionService()
	staffRepo := newFakeStaffRepo()

	// a row occupying only the reserved department still blocks it
	existing := staffWithRole(models.RoleAdmin, models.DepartmentSuperuser)
	require.NoError(t, staffRepo.Create(context.Background(), existing))

	err := svc.EnsureSingleSuperuser(context.Background(), staffRepo, "", models.DepartmentSuperuser)
	assert.ErrorIs(t, err, domain.ErrDuplicateSuperuserDepartment)

	// the role check does not fire for it
	assert.NoError(t, svc.EnsureSingleSuperuser(context.Background(), staffRepo, models.RoleSuperuser, ""))
}

func TestEnsureSingleSuperuserIgnoresOrdinaryValues(t *testing.T) {
	svc := NewRestrictionService()
	staffRepo := newFakeStaffRepo()

	require.NoError(t, staffRepo.Create(context.Background(), staffWithRole(models.RoleSuperuser, models.DepartmentSuperuser)))

	// ordinary role+department never trips the singleton
	assert.NoError(t, svc.EnsureSingleSuperuser(context.Background(), staffRepo, models.RoleAdmin, models.DepartmentIT))
}
