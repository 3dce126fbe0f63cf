package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/core/domain"
	"aegis-identity/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService handles user management business logic
type UserService struct {
	userRepo    repositories.UserRepository
	staffRepo   repositories.StaffRepository
	activitySvc *ActivityService
	txManager   repositories.TxManager
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	staffRepo repositories.StaffRepository,
	activitySvc *ActivityService,
	txManager repositories.TxManager,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		staffRepo:   staffRepo,
		activitySvc: activitySvc,
		txManager:   txManager,
	}
}

// CreateUserInput represents user creation input
type CreateUserInput struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UpdateUserInput represents user update input. Nil fields are left
// untouched.
type UpdateUserInput struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	Password    *string `json:"password"`
	Status      *string `json:"status"`
	IsVerified  *bool   `json:"is_verified"`
	TwoFASecret *string `json:"twofa_secret"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Total int64                  `json:"total"`
}

// Create creates a new user. Creating another superuser is always
// denied - the singleton superuser only ever comes from the seeder.
// Uniqueness checks, the insert, and the audit row share a transaction.
func (s *UserService) Create(ctx context.Context, actor *models.User, input *CreateUserInput, meta ClientMeta) (*models.User, error) {
	if input.IsSuperuser {
		s.auditDenial(ctx, actor, "create_user_denied", meta, map[string]string{"reason": "attempt to create superuser"})
		return nil, domain.ErrForbidden
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:       input.Username,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		HashedPassword: hashedPassword,
		Status:         models.UserStatusPendingKYC,
	}

	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := s.checkUniqueness(ctx, r.Users, input.Username, input.Email, input.PhoneNumber, uuid.Nil); err != nil {
			return err
		}

		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}

		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "create_user_success",
			Meta:         meta,
			Fields:       map[string]string{"target": user.Username},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User created: %s", user.Username)
	return user, nil
}

// GetByID retrieves a user. The superuser record is visible only to
// itself; everyone else gets a denial that is itself audited.
func (s *UserService) GetByID(ctx context.Context, actor *models.User, id uuid.UUID, meta ClientMeta) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if user.IsSuperuser && user.ID != actor.ID {
		s.auditDenial(ctx, actor, "get_user_denied", meta, map[string]string{"target": user.Username})
		return nil, domain.ErrForbidden
	}

	if _, err := s.activitySvc.Record(ctx, RecordInput{
		Actor:        actor,
		Target:       user,
		ActivityType: "get_user_success",
		Meta:         meta,
	}); err != nil {
		return nil, err
	}

	return user, nil
}

// List lists users (the superuser is never included) with pagination
func (s *UserService) List(ctx context.Context, actor *models.User, offset, limit int, meta ClientMeta) (*ListUsersOutput, error) {
	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}

	if _, err := s.activitySvc.Record(ctx, RecordInput{
		Actor:        actor,
		ActivityType: "list_users_success",
		Meta:         meta,
		Fields:       map[string]string{"count": strconv.Itoa(len(users))},
	}); err != nil {
		return nil, err
	}

	return &ListUsersOutput{Users: responses, Total: total}, nil
}

// Update mutates a user record. The superuser account may only be
// edited by itself, and any change to another user's record - identity
// fields and credentials included - requires staff holding user:update.
// Only the account owner updates itself freely.
func (s *UserService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input *UpdateUserInput, meta ClientMeta) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if user.IsSuperuser && user.ID != actor.ID {
		s.auditDenial(ctx, actor, "update_user_denied", meta, map[string]string{"target": user.Username})
		return nil, domain.ErrForbidden
	}

	if actor.ID != user.ID {
		allowed, err := s.actorHasPermission(ctx, actor, "user:update")
		if err != nil {
			return nil, err
		}
		if !allowed {
			s.auditDenial(ctx, actor, "update_user_denied", meta, map[string]string{"target": user.Username})
			return nil, domain.ErrForbidden
		}
	}

	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		username, email, phone := user.Username, user.Email, user.PhoneNumber
		if input.Username != nil {
			username = *input.Username
		}
		if input.Email != nil {
			email = *input.Email
		}
		if input.PhoneNumber != nil {
			phone = *input.PhoneNumber
		}
		if err := s.checkUniqueness(ctx, r.Users, username, email, phone, user.ID); err != nil {
			return err
		}

		user.Username = username
		user.Email = email
		user.PhoneNumber = phone

		if input.Password != nil {
			hashed, err := password.Hash(*input.Password)
			if err != nil {
				return err
			}
			user.HashedPassword = hashed
		}
		if input.Status != nil {
			user.Status = *input.Status
		}
		if input.IsVerified != nil {
			user.IsVerified = *input.IsVerified
		}
		if input.TwoFASecret != nil {
			user.TwoFASecret = input.TwoFASecret
		}

		if err := r.Users.Update(ctx, user); err != nil {
			return err
		}

		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			Target:       user,
			ActivityType: "update_user_success",
			Meta:         meta,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Delete removes a user. The superuser can only be deleted by itself.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id uuid.UUID, meta ClientMeta) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	if user.IsSuperuser && user.ID != actor.ID {
		s.auditDenial(ctx, actor, "delete_user_denied", meta, map[string]string{"target": user.Username})
		return domain.ErrForbidden
	}

	return s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := r.Users.Delete(ctx, user.ID); err != nil {
			return err
		}
		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "delete_user_success",
			Meta:         meta,
			Fields:       map[string]string{"target": user.Username},
		})
		return err
	})
}

// ChangePassword rotates the actor's own password
func (s *UserService) ChangePassword(ctx context.Context, actor *models.User, input *ChangePasswordInput, meta ClientMeta) error {
	if !password.Verify(input.OldPassword, actor.HashedPassword) {
		s.auditDenial(ctx, actor, "change_password_failed", meta, map[string]string{"reason": "old password incorrect"})
		return domain.ErrInvalidCredentials
	}

	if !password.ValidatePassword(input.NewPassword) {
		return fmt.Errorf("%w: new password must be at least 8 characters", domain.ErrConflict)
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	actor.HashedPassword = hashed

	return s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := r.Users.Update(ctx, actor); err != nil {
			return err
		}
		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "change_password_success",
			Meta:         meta,
		})
		return err
	})
}

// checkUniqueness runs username/email/phone checks, ignoring the row
// being updated. Must run inside the caller's transaction so the store
// serializes concurrent claims on the same value.
func (s *UserService) checkUniqueness(ctx context.Context, users repositories.UserRepository, username, email, phone string, selfID uuid.UUID) error {
	if taken, err := users.ExistsByUsername(ctx, username, selfID); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("%w: username already taken", domain.ErrConflict)
	}

	if taken, err := users.ExistsByEmail(ctx, email, selfID); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}

	if taken, err := users.ExistsByPhone(ctx, phone, selfID); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("%w: phone number already registered", domain.ErrConflict)
	}

	return nil
}

// actorHasPermission checks a permission on the actor's staff profile
func (s *UserService) actorHasPermission(ctx context.Context, actor *models.User, permission string) (bool, error) {
	staff, err := s.staffRepo.GetByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return staff.HasPermission(permission), nil
}

// auditDenial records a denial before the error is returned. Denials
// are security-relevant and must reach the trail even as the request
// fails.
func (s *UserService) auditDenial(ctx context.Context, actor *models.User, activityType string, meta ClientMeta, fields map[string]string) {
	if _, err := s.activitySvc.Record(ctx, RecordInput{
		Actor:        actor,
		ActivityType: activityType,
		Meta:         meta,
		Fields:       fields,
	}); err != nil {
		log.Printf("⚠️ audit record lost (%s): %v", activityType, err)
	}
}
