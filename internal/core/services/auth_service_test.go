package services

import (
	"context"
	"testing"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/config"
	"aegis-identity/internal/core/domain"
	"aegis-identity/internal/pkg/password"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:          "test-secret-key",
			Algorithm:          "HS256",
			AccessTokenMinutes: 15,
			RefreshTokenDays:   7,
		},
	}
}

func newAuthFixture(t *testing.T) (*AuthService, *testEnv, *models.User) {
	t.Helper()
	env := newTestEnv()
	svc := NewAuthService(env.users, env.sessions, env.activityService(), env.txManager, testJWTConfig())

	hashed, err := password.Hash("correct-horse")
	require.NoError(t, err)

	user := &models.User{
		ID:             uuid.New(),
		Username:       "alice",
		Email:          "alice@example.com",
		PhoneNumber:    "+1000001",
		HashedPassword: hashed,
		Status:         models.UserStatusActive,
		IsVerified:     true,
	}
	require.NoError(t, env.users.Create(context.Background(), user))

	return svc, env, user
}

func TestLoginSuccessCreatesSessionAndOneAudit(t *testing.T) {
	svc, env, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, user.ID, resp.User.ID)

	// the session row stores a hash, never the token itself
	require.Len(t, env.sessions.sessions, 1)
	hash := password.HashToken(resp.RefreshToken)
	session, ok := env.sessions.sessions[hash]
	require.True(t, ok)
	assert.True(t, session.IsValid)
	assert.Equal(t, user.ID, session.UserID)

	// exactly one audit entry for the outcome
	assert.Len(t, env.logs.byType("login"), 1)
	assert.Empty(t, env.logs.byType("login_failed"))
}

func TestLoginUnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	svc, env, _ := newAuthFixture(t)

	_, errUnknown := svc.Login(context.Background(), &LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	_, errWrong := svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})

	assert.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)

	// one failure audit per attempt, no sessions issued
	assert.Len(t, env.logs.byType("login_failed"), 2)
	assert.Empty(t, env.sessions.sessions)
}

func TestLoginSuspendedAccountFailsDistinctly(t *testing.T) {
	svc, env, user := newAuthFixture(t)
	user.Status = models.UserStatusSuspended

	_, err := svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, domain.ErrAccountSuspended)

	assert.Len(t, env.logs.byType("login_blocked"), 1)
	assert.Empty(t, env.logs.byType("login_failed"))
	assert.Empty(t, env.sessions.sessions)
}

func TestLogoutInvalidatesWithoutDeleting(t *testing.T) {
	svc, env, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), user, resp.RefreshToken, ClientMeta{}))

	// the row survives with the flag flipped
	hash := password.HashToken(resp.RefreshToken)
	session := env.sessions.sessions[hash]
	require.NotNil(t, session)
	assert.False(t, session.IsValid)
	assert.Len(t, env.logs.byType("logout"), 1)

	// the dead session cannot be resurrected through refresh
	_, err = svc.Refresh(context.Background(), resp.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLogoutMissingTokenRejected(t *testing.T) {
	svc, _, user := newAuthFixture(t)
	err := svc.Logout(context.Background(), user, "", ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestLogoutUnknownSessionAuditedAsFailed(t *testing.T) {
	svc, env, user := newAuthFixture(t)

	err := svc.Logout(context.Background(), user, "not-a-real-token", ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Len(t, env.logs.byType("logout_failed"), 1)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, env, user := newAuthFixture(t)

	login, err := svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// old session invalidated, new one live
	oldSession := env.sessions.sessions[password.HashToken(login.RefreshToken)]
	newSession := env.sessions.sessions[password.HashToken(refreshed.RefreshToken)]
	require.NotNil(t, oldSession)
	require.NotNil(t, newSession)
	assert.False(t, oldSession.IsValid)
	assert.True(t, newSession.IsValid)
	assert.Equal(t, user.ID, newSession.UserID)

	assert.Len(t, env.logs.byType("token_refresh"), 1)

	// replaying the rotated-out token fails
	_, err = svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRefreshGarbageTokenRejected(t *testing.T) {
	svc, env, _ := newAuthFixture(t)

	_, err := svc.Refresh(context.Background(), "garbage.token.value", ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.Len(t, env.logs.byType("token_refresh_failed"), 1)
}

func TestRefreshInactiveUserRejected(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	login, err := svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	user.Status = models.UserStatusSuspended

	_, err = svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLogoutAllInvalidatesEverySession(t *testing.T) {
	svc, env, user := newAuthFixture(t)

	// two concurrent sessions
	first, err := svc.Login(context.Background(), &LoginInput{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), &LoginInput{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	count, err := env.sessions.CountActiveByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, svc.LogoutAll(context.Background(), user, ClientMeta{}))

	count, err = env.sessions.CountActiveByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
