package services

import (
	"context"
	"time"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes. They mirror the error contracts of the
// GORM implementations: gorm.ErrRecordNotFound for plain stores, the
// session domain errors for the session store.

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) findBy(match func(*models.User) bool) (*models.User, error) {
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.findBy(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, offset, limit int) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range f.users {
		if !u.IsSuperuser {
			out = append(out, u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) ExistsByUsername(_ context.Context, username string, excludeID uuid.UUID) (bool, error) {
	u, err := f.findBy(func(u *models.User) bool { return u.Username == username && u.ID != excludeID })
	return err == nil && u != nil, nil
}

func (f *fakeUserRepo) ExistsByEmail(_ context.Context, email string, excludeID uuid.UUID) (bool, error) {
	u, err := f.findBy(func(u *models.User) bool { return u.Email == email && u.ID != excludeID })
	return err == nil && u != nil, nil
}

func (f *fakeUserRepo) ExistsByPhone(_ context.Context, phone string, excludeID uuid.UUID) (bool, error) {
	u, err := f.findBy(func(u *models.User) bool { return u.PhoneNumber == phone && u.ID != excludeID })
	return err == nil && u != nil, nil
}

func (f *fakeUserRepo) SuperuserExists(_ context.Context) (bool, error) {
	for _, u := range f.users {
		if u.IsSuperuser {
			return true, nil
		}
	}
	return false, nil
}

type fakeSessionRepo struct {
	sessions map[string]*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.Session{}}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *models.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	f.sessions[session.TokenHash] = session
	return nil
}

func (f *fakeSessionRepo) findActive(tokenHash string, userID uuid.UUID) (*models.Session, error) {
	s, ok := f.sessions[tokenHash]
	if !ok || s.UserID != userID || !s.IsValid {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionRepo) Validate(_ context.Context, tokenHash string, userID uuid.UUID) (*models.Session, error) {
	s, err := f.findActive(tokenHash, userID)
	if err != nil {
		return nil, err
	}
	if s.IsExpired() {
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

func (f *fakeSessionRepo) Invalidate(_ context.Context, tokenHash string, userID uuid.UUID) error {
	s, err := f.findActive(tokenHash, userID)
	if err != nil {
		return err
	}
	s.IsValid = false
	return nil
}

func (f *fakeSessionRepo) InvalidateAllByUserID(_ context.Context, userID uuid.UUID) error {
	for _, s := range f.sessions {
		if s.UserID == userID {
			s.IsValid = false
		}
	}
	return nil
}

func (f *fakeSessionRepo) CountActiveByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsValid && !s.IsExpired() {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepo) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	var swept int64
	for _, s := range f.sessions {
		if s.IsValid && now.After(s.ExpiresAt) {
			s.IsValid = false
			swept++
		}
	}
	return swept, nil
}

type fakeStaffRepo struct {
	staff map[uuid.UUID]*models.Staff
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{staff: map[uuid.UUID]*models.Staff{}}
}

func (f *fakeStaffRepo) Create(_ context.Context, staff *models.Staff) error {
	if staff.ID == uuid.Nil {
		staff.ID = uuid.New()
	}
	f.staff[staff.ID] = staff
	return nil
}

func (f *fakeStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Staff, error) {
	if s, ok := f.staff[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStaffRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Staff, error) {
	for _, s := range f.staff {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStaffRepo) Update(_ context.Context, staff *models.Staff) error {
	f.staff[staff.ID] = staff
	return nil
}

func (f *fakeStaffRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.staff, id)
	return nil
}

func (f *fakeStaffRepo) List(_ context.Context, offset, limit int) ([]*models.Staff, int64, error) {
	var out []*models.Staff
	for _, s := range f.staff {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStaffRepo) ExistsByRole(_ context.Context, role string) (bool, error) {
	for _, s := range f.staff {
		if s.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStaffRepo) ExistsByDepartment(_ context.Context, department string) (bool, error) {
	for _, s := range f.staff {
		if s.Department == department {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStaffRepo) ReplacePermissions(_ context.Context, staff *models.Staff, perms []models.Permission) error {
	staff.Permissions = perms
	f.staff[staff.ID] = staff
	return nil
}

type fakePermissionRepo struct {
	perms map[string]models.Permission
}

func newFakePermissionRepo(names ...string) *fakePermissionRepo {
	f := &fakePermissionRepo{perms: map[string]models.Permission{}}
	for _, name := range names {
		f.perms[name] = models.Permission{ID: uuid.New(), Name: name}
	}
	return f
}

func (f *fakePermissionRepo) GetByNames(_ context.Context, names []string) ([]models.Permission, error) {
	var out []models.Permission
	for _, name := range names {
		if p, ok := f.perms[name]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePermissionRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]models.Permission, error) {
	var out []models.Permission
	for _, p := range f.perms {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakePermissionRepo) List(_ context.Context) ([]models.Permission, error) {
	var out []models.Permission
	for _, p := range f.perms {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePermissionRepo) Upsert(_ context.Context, name string) (*models.Permission, error) {
	if p, ok := f.perms[name]; ok {
		return &p, nil
	}
	p := models.Permission{ID: uuid.New(), Name: name}
	f.perms[name] = p
	return &p, nil
}

type fakeActivityLogRepo struct {
	entries []*models.ActivityLog
	failAll bool
}

func newFakeActivityLogRepo() *fakeActivityLogRepo {
	return &fakeActivityLogRepo{}
}

func (f *fakeActivityLogRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	if f.failAll {
		return gorm.ErrInvalidDB
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeActivityLogRepo) List(_ context.Context, offset, limit int) ([]*models.ActivityLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func (f *fakeActivityLogRepo) ListByUserID(_ context.Context, userID uuid.UUID, offset, limit int) ([]*models.ActivityLog, int64, error) {
	var out []*models.ActivityLog
	for _, e := range f.entries {
		if e.UserID != nil && *e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

// byType returns the audit entries with the given activity type
func (f *fakeActivityLogRepo) byType(activityType string) []*models.ActivityLog {
	var out []*models.ActivityLog
	for _, e := range f.entries {
		if e.ActivityType == activityType {
			out = append(out, e)
		}
	}
	return out
}

type fakeAPIKeyRepo struct {
	keys map[uuid.UUID]*models.APIKey
}

func newFakeAPIKeyRepo() *fakeAPIKeyRepo {
	return &fakeAPIKeyRepo{keys: map[uuid.UUID]*models.APIKey{}}
}

func (f *fakeAPIKeyRepo) Create(_ context.Context, key *models.APIKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	f.keys[key.ID] = key
	return nil
}

func (f *fakeAPIKeyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.APIKey, error) {
	if k, ok := f.keys[id]; ok {
		return k, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAPIKeyRepo) GetByKeyHash(_ context.Context, keyHash string) (*models.APIKey, error) {
	for _, k := range f.keys {
		if k.KeyHash == keyHash {
			return k, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAPIKeyRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range f.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeAPIKeyRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.keys, id)
	return nil
}

type fakeKYCRepo struct {
	rows map[uuid.UUID]*models.KYCVerification
}

func newFakeKYCRepo() *fakeKYCRepo {
	return &fakeKYCRepo{rows: map[uuid.UUID]*models.KYCVerification{}}
}

func (f *fakeKYCRepo) Create(_ context.Context, kyc *models.KYCVerification) error {
	if kyc.ID == uuid.Nil {
		kyc.ID = uuid.New()
	}
	kyc.CreatedAt = time.Now()
	f.rows[kyc.ID] = kyc
	return nil
}

func (f *fakeKYCRepo) GetByID(_ context.Context, id uuid.UUID) (*models.KYCVerification, error) {
	if k, ok := f.rows[id]; ok {
		return k, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeKYCRepo) GetLatestByUserID(_ context.Context, userID uuid.UUID) (*models.KYCVerification, error) {
	var latest *models.KYCVerification
	for _, k := range f.rows {
		if k.UserID != userID {
			continue
		}
		if latest == nil || k.CreatedAt.After(latest.CreatedAt) {
			latest = k
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeKYCRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.KYCVerification, error) {
	var out []*models.KYCVerification
	for _, k := range f.rows {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKYCRepo) Update(_ context.Context, kyc *models.KYCVerification) error {
	f.rows[kyc.ID] = kyc
	return nil
}

// fakeTxManager runs the unit of work directly against the shared fake
// bundle. Rollback is not simulated; tests assert on error propagation.
type fakeTxManager struct {
	repos *repositories.Repositories
}

func (m *fakeTxManager) RunInTx(_ context.Context, fn func(r *repositories.Repositories) error) error {
	return fn(m.repos)
}

// testEnv wires a full fake persistence layer for service tests
type testEnv struct {
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	staff     *fakeStaffRepo
	perms     *fakePermissionRepo
	logs      *fakeActivityLogRepo
	apiKeys   *fakeAPIKeyRepo
	kyc       *fakeKYCRepo
	txManager *fakeTxManager
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:    newFakeUserRepo(),
		sessions: newFakeSessionRepo(),
		staff:    newFakeStaffRepo(),
		perms:    newFakePermissionRepo(),
		logs:     newFakeActivityLogRepo(),
		apiKeys:  newFakeAPIKeyRepo(),
		kyc:      newFakeKYCRepo(),
	}
	env.txManager = &fakeTxManager{repos: &repositories.Repositories{
		Users:        env.users,
		Sessions:     env.sessions,
		Staff:        env.staff,
		Permissions:  env.perms,
		ActivityLogs: env.logs,
		APIKeys:      env.apiKeys,
		KYC:          env.kyc,
	}}
	return env
}

func (env *testEnv) activityService() *ActivityService {
	return NewActivityService(env.logs, env.staff, NewRestrictionService())
}
