package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every store behind one handle so transactional
// code paths can work against a consistent set.
type Repositories struct {
	Users        UserRepository
	Sessions     SessionRepository
	Staff        StaffRepository
	Permissions  PermissionRepository
	ActivityLogs ActivityLogRepository
	APIKeys      APIKeyRepository
	KYC          KYCRepository
}

// New builds the repository bundle on a database handle
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:        NewUserRepository(db),
		Sessions:     NewSessionRepository(db),
		Staff:        NewStaffRepository(db),
		Permissions:  NewPermissionRepository(db),
		ActivityLogs: NewActivityLogRepository(db),
		APIKeys:      NewAPIKeyRepository(db),
		KYC:          NewKYCRepository(db),
	}
}

// TxManager runs a function against transaction-bound repositories.
// Read-check-then-write sequences (uniqueness checks, the superuser
// singleton, business mutation + its audit row) must go through here so
// the storage engine serializes them; the core holds no application
// locks.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(r *Repositories) error) error
}

// gormTxManager implements TxManager on a GORM transaction
type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager creates a transaction manager
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

// RunInTx opens a transaction, rebinds every repository to it, and
// commits only if fn returns nil. Any error rolls the whole unit of
// work back - a mutation never lands without its audit row.
func (m *gormTxManager) RunInTx(ctx context.Context, fn func(r *Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
