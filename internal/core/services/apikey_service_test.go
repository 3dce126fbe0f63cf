package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIKeyFixture(t *testing.T) (*APIKeyService, *testEnv) {
	t.Helper()
	env := newTestEnv()
	for _, name := range []string{"user:read", "user:update", "activity:read"} {
		_, err := env.perms.Upsert(context.Background(), name)
		require.NoError(t, err)
	}
	svc := NewAPIKeyService(env.apiKeys, env.perms, env.activityService(), env.txManager)
	return svc, env
}

func TestCreateAPIKeyStoresHashNotPlaintext(t *testing.T) {
	svc, env := newAPIKeyFixture(t)
	owner := seedUser(t, env, "owner", false)
	staff := grantStaff(t, env, owner, models.RoleSupport, "user:read", "activity:read")

	out, err := svc.Create(context.Background(), owner, staff, &CreateAPIKeyInput{
		Permissions: []string{"user:read"},
	}, ClientMeta{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.Plaintext, "aik_"))
	assert.Len(t, out.Plaintext, 4+64)
	assert.NotContains(t, out.Key.KeyHash, out.Plaintext)
	assert.True(t, out.Key.IsActive)
	assert.Nil(t, out.Key.ExpiresAt)
	assert.Len(t, env.logs.byType("apikey_created"), 1)
}

func TestCreateAPIKeyCannotExceedOwnerGrants(t *testing.T) {
	svc, env := newAPIKeyFixture(t)
	owner := seedUser(t, env, "owner", false)
	staff := grantStaff(t, env, owner, models.RoleSupport, "user:read")

	_, err := svc.Create(context.Background(), owner, staff, &CreateAPIKeyInput{
		Permissions: []string{"user:read", "user:update"},
	}, ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// no staff profile at all means no permissions can be granted
	plain := seedUser(t, env, "plain", false)
	_, err = svc.Create(context.Background(), plain, nil, &CreateAPIKeyInput{
		Permissions: []string{"user:read"},
	}, ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateAPIKeyWithExpiry(t *testing.T) {
	svc, env := newAPIKeyFixture(t)
	owner := seedUser(t, env, "owner", false)

	days := 30
	out, err := svc.Create(context.Background(), owner, nil, &CreateAPIKeyInput{ExpiresDays: &days}, ClientMeta{})
	require.NoError(t, err)

	require.NotNil(t, out.Key.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *out.Key.ExpiresAt, time.Minute)
}

func TestAuthenticateAPIKeyRoundTrip(t *testing.T) {
	svc, env := newAPIKeyFixture(t)
	owner := seedUser(t, env, "owner", false)

	out, err := svc.Create(context.Background(), owner, nil, &CreateAPIKeyInput{}, ClientMeta{})
	require.NoError(t, err)

	key, err := svc.Authenticate(context.Background(), out.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, out.Key.ID, key.ID)
	assert.Equal(t, owner.ID, key.UserID)
}

func TestAuthenticateRejectsUnknownInactiveAndExpiredAlike(t *testing.T) {
	svc, env := newAPIKeyFixture(t)
	owner := seedUser(t, env, "owner", false)

	_, err := svc.Authenticate(context.Background(), "aik_nonsense")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	inactive, err := svc.Create(context.Background(), owner, nil, &CreateAPIKeyInput{}, ClientMeta{})
	require.NoError(t, err)
	inactive.Key.IsActive = false
	_, err = svc.Authenticate(context.Background(), inactive.Plaintext)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	expired, err := svc.Create(context.Background(), owner, nil, &CreateAPIKeyInput{}, ClientMeta{})
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	expired.Key.ExpiresAt = &past
	_, err = svc.Authenticate(context.Background(), expired.Plaintext)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDeleteAPIKeyOwnerScoped(t *testing.T) {
	svc, env := newAPIKeyFixture(t)
	owner := seedUser(t, env, "owner", false)
	other := seedUser(t, env, "other", false)

	out, err := svc.Create(context.Background(), owner, nil, &CreateAPIKeyInput{}, ClientMeta{})
	require.NoError(t, err)

	// a foreign key id reads as not found, not forbidden
	err = svc.Delete(context.Background(), other, out.Key.ID, ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), owner, out.Key.ID, ClientMeta{}))
	_, err = svc.Authenticate(context.Background(), out.Plaintext)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Len(t, env.logs.byType("apikey_deleted"), 1)
}

func TestListAPIKeysScopedToCaller(t *testing.T) {
	svc, env := newAPIKeyFixture(t)
	owner := seedUser(t, env, "owner", false)
	other := seedUser(t, env, "other", false)

	_, err := svc.Create(context.Background(), owner, nil, &CreateAPIKeyInput{}, ClientMeta{})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), other, nil, &CreateAPIKeyInput{}, ClientMeta{})
	require.NoError(t, err)

	keys, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, owner.ID, keys[0].UserID)
}
