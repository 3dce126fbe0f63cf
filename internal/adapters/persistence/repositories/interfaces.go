package repositories

import (
	"context"
	"time"

	"aegis-identity/internal/adapters/persistence/models"

	"github.com/google/uuid"
)

// UserRepository defines credential store access for user records.
// The Exists* checks take the id of the row being updated so a record
// never collides with itself; uuid.Nil excludes nothing.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string, excludeID uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
	ExistsByPhone(ctx context.Context, phone string, excludeID uuid.UUID) (bool, error)
	SuperuserExists(ctx context.Context) (bool, error)
}

// SessionRepository defines the refresh-token session store.
// Validate and Invalidate return domain errors directly since their
// failure semantics are part of the session contract: a missing row and
// an already-invalidated row are deliberately indistinguishable.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Validate(ctx context.Context, tokenHash string, userID uuid.UUID) (*models.Session, error)
	Invalidate(ctx context.Context, tokenHash string, userID uuid.UUID) error
	InvalidateAllByUserID(ctx context.Context, userID uuid.UUID) error
	CountActiveByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// StaffRepository defines staff profile persistence
type StaffRepository interface {
	Create(ctx context.Context, staff *models.Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Staff, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Staff, error)
	Update(ctx context.Context, staff *models.Staff) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, offset, limit int) ([]*models.Staff, int64, error)
	ExistsByRole(ctx context.Context, role string) (bool, error)
	ExistsByDepartment(ctx context.Context, department string) (bool, error)
	ReplacePermissions(ctx context.Context, staff *models.Staff, perms []models.Permission) error
}

// PermissionRepository defines the closed permission vocabulary
type PermissionRepository interface {
	GetByNames(ctx context.Context, names []string) ([]models.Permission, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Permission, error)
	List(ctx context.Context) ([]models.Permission, error)
	Upsert(ctx context.Context, name string) (*models.Permission, error)
}

// ActivityLogRepository defines the append-only audit store. There is
// deliberately no update or delete.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, offset, limit int) ([]*models.ActivityLog, int64, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.ActivityLog, int64, error)
}

// APIKeyRepository defines API key persistence
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error)
	GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// KYCRepository defines KYC verification persistence
type KYCRepository interface {
	Create(ctx context.Context, kyc *models.KYCVerification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.KYCVerification, error)
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCVerification, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.KYCVerification, error)
	Update(ctx context.Context, kyc *models.KYCVerification) error
}
