package config

import (
	"context"
	"fmt"
	"log"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/pkg/password"

	"gorm.io/gorm"
)

// PermissionVocabulary is the closed set of grantable permissions.
// Permission checks compare against these names exactly; nothing else
// is ever inserted at runtime.
var PermissionVocabulary = []string{
	"user:create",
	"user:read",
	"user:update",
	"user:delete",
	"staff:create",
	"staff:read",
	"staff:update",
	"staff:delete",
	"activity:read",
	"apikey:create",
	"apikey:read",
	"apikey:delete",
	"kyc:review",
}

// Seed upserts the permission vocabulary and creates the singleton
// superuser if none exists. Safe to run on every startup.
func Seed(db *gorm.DB, cfg *Config) error {
	if err := seedPermissions(db); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	if err := seedSuperuser(db, cfg); err != nil {
		return fmt.Errorf("seed superuser: %w", err)
	}
	return nil
}

func seedPermissions(db *gorm.DB) error {
	for _, name := range PermissionVocabulary {
		var perm models.Permission
		err := db.Where("name = ?", name).First(&perm).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&models.Permission{Name: name}).Error; err != nil {
			return err
		}
	}
	log.Printf("✅ Permission vocabulary seeded (%d entries)", len(PermissionVocabulary))
	return nil
}

// seedSuperuser creates the one superuser account plus its staff
// profile carrying the reserved role and department. The account is
// the only path by which a superuser ever comes into existence.
func seedSuperuser(db *gorm.DB, cfg *Config) error {
	exists, err := repositories.NewUserRepository(db).SuperuserExists(context.Background())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hashed, err := password.Hash(cfg.Superuser.Password)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := &models.User{
			Username:       cfg.Superuser.Username,
			Email:          cfg.Superuser.Email,
			PhoneNumber:    cfg.Superuser.Phone,
			HashedPassword: hashed,
			IsVerified:     true,
			IsSuperuser:    true,
			Status:         models.UserStatusActive,
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		var perms []models.Permission
		if err := tx.Find(&perms).Error; err != nil {
			return err
		}

		staff := &models.Staff{
			UserID:      user.ID,
			Department:  models.DepartmentSuperuser,
			Role:        models.RoleSuperuser,
			Permissions: perms,
		}
		if err := tx.Create(staff).Error; err != nil {
			return err
		}

		log.Printf("✅ Superuser seeded: %s", user.Email)
		return nil
	})
}
