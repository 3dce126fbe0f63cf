package repositories

import (
	"context"
	"testing"
	"time"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func sessionColumns() []string {
	return []string{"id", "user_id", "token_hash", "is_valid", "expires_at"}
}

func TestSessionCreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `sessions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	session := &models.Session{
		UserID:    uuid.New(),
		TokenHash: "abc123",
		IsValid:   true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionValidateReturnsActiveRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	sessionID := uuid.New()
	userID := uuid.New()
	mock.ExpectQuery("SELECT \\* FROM `sessions`").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(sessionID.String(), userID.String(), "hash-1", true, time.Now().Add(time.Hour)))

	session, err := repo.Validate(context.Background(), "hash-1", userID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, session.ID)
	assert.True(t, session.IsValid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionValidateMissingRowIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `sessions`").
		WillReturnRows(sqlmock.NewRows(sessionColumns()))

	_, err := repo.Validate(context.Background(), "unknown", uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionValidateExpiredRowFailsLazily(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	userID := uuid.New()
	// validity flag still true but past expiry
	mock.ExpectQuery("SELECT \\* FROM `sessions`").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(uuid.NewString(), userID.String(), "hash-1", true, time.Now().Add(-time.Minute)))

	_, err := repo.Validate(context.Background(), "hash-1", userID)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestSessionInvalidateFlipsFlag(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	userID := uuid.New()
	mock.ExpectQuery("SELECT \\* FROM `sessions`").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(uuid.NewString(), userID.String(), "hash-1", true, time.Now().Add(time.Hour)))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `sessions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Invalidate(context.Background(), "hash-1", userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionInvalidateMissingRowIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `sessions`").
		WillReturnRows(sqlmock.NewRows(sessionColumns()))

	err := repo.Invalidate(context.Background(), "unknown", uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionInvalidateAllByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `sessions` SET").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.InvalidateAllByUserID(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCountActiveByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `sessions`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))

	count, err := repo.CountActiveByUserID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestSweepExpiredReportsAffectedRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `sessions` SET").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	swept, err := repo.SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 4, swept)
	assert.NoError(t, mock.ExpectationsWereMet())
}
