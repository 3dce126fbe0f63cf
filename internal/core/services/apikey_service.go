package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/core/domain"
	"aegis-identity/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const apiKeyPrefix = "aik_"

// APIKeyService handles programmatic access keys. The plaintext key is
// returned exactly once at creation; only its hash is stored.
type APIKeyService struct {
	apiKeyRepo  repositories.APIKeyRepository
	permRepo    repositories.PermissionRepository
	activitySvc *ActivityService
	txManager   repositories.TxManager
}

// NewAPIKeyService creates a new API key service
func NewAPIKeyService(
	apiKeyRepo repositories.APIKeyRepository,
	permRepo repositories.PermissionRepository,
	activitySvc *ActivityService,
	txManager repositories.TxManager,
) *APIKeyService {
	return &APIKeyService{
		apiKeyRepo:  apiKeyRepo,
		permRepo:    permRepo,
		activitySvc: activitySvc,
		txManager:   txManager,
	}
}

// CreateAPIKeyInput represents API key creation input
type CreateAPIKeyInput struct {
	Permissions []string `json:"permissions"`
	ExpiresDays *int     `json:"expires_days"`
}

// CreateAPIKeyOutput carries the one-time plaintext alongside the
// stored record
type CreateAPIKeyOutput struct {
	Key      *models.APIKey `json:"key"`
	Plaintext string        `json:"plaintext"`
}

// Create mints a new key for the calling user. A key can never carry a
// permission its owner does not hold on their staff profile, so keys
// are strictly narrower than the account that issued them.
func (s *APIKeyService) Create(ctx context.Context, actor *models.User, actorStaff *models.Staff, input *CreateAPIKeyInput, meta ClientMeta) (*CreateAPIKeyOutput, error) {
	for _, name := range input.Permissions {
		if actorStaff == nil || !actorStaff.HasPermission(name) {
			return nil, fmt.Errorf("%w: key permission %q exceeds caller grants", domain.ErrForbidden, name)
		}
	}

	plaintext, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		UserID:   actor.ID,
		KeyHash:  password.HashToken(plaintext),
		IsActive: true,
	}
	if input.ExpiresDays != nil && *input.ExpiresDays > 0 {
		exp := time.Now().Add(time.Duration(*input.ExpiresDays) * 24 * time.Hour)
		key.ExpiresAt = &exp
	}

	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		perms, err := r.Permissions.GetByNames(ctx, input.Permissions)
		if err != nil {
			return err
		}
		if len(perms) != len(input.Permissions) {
			return fmt.Errorf("%w: unknown permission in set", domain.ErrNotFound)
		}
		key.Permissions = perms

		if err := r.APIKeys.Create(ctx, key); err != nil {
			return err
		}

		_, err = s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "apikey_created",
			Meta:         meta,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ API key created: user=%s id=%s", actor.Username, key.ID)
	return &CreateAPIKeyOutput{Key: key, Plaintext: plaintext}, nil
}

// List returns the caller's keys. Hashes never leave the store.
func (s *APIKeyService) List(ctx context.Context, actor *models.User) ([]*models.APIKey, error) {
	return s.apiKeyRepo.ListByUserID(ctx, actor.ID)
}

// Delete revokes one of the caller's keys. Keys belong to their owner
// only; a foreign key id reads as not found.
func (s *APIKeyService) Delete(ctx context.Context, actor *models.User, keyID uuid.UUID, meta ClientMeta) error {
	key, err := s.apiKeyRepo.GetByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if key.UserID != actor.ID {
		return domain.ErrNotFound
	}

	return s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := r.APIKeys.Delete(ctx, key.ID); err != nil {
			return err
		}
		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "apikey_deleted",
			Meta:         meta,
		})
		return err
	})
}

// Authenticate resolves an API key plaintext to its owner's record.
// Expired or deactivated keys are indistinguishable from unknown ones.
func (s *APIKeyService) Authenticate(ctx context.Context, plaintext string) (*models.APIKey, error) {
	key, err := s.apiKeyRepo.GetByKeyHash(ctx, password.HashToken(plaintext))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !key.IsActive || key.IsExpired() {
		return nil, domain.ErrUnauthorized
	}
	return key, nil
}

// generateAPIKey returns a prefixed 256-bit random key
func generateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}
