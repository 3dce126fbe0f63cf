package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"aegis-identity/internal/adapters/http/middleware"
	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/config"
	"aegis-identity/internal/core/domain"
	"aegis-identity/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Stubs embed their interface so only the methods the logout path
// touches need bodies.

type stubSessionRepo struct {
	repositories.SessionRepository
	invalidated bool
	failLookup  bool
}

func (s *stubSessionRepo) Invalidate(_ context.Context, _ string, _ uuid.UUID) error {
	if s.failLookup {
		return domain.ErrSessionNotFound
	}
	s.invalidated = true
	return nil
}

type stubStaffRepo struct {
	repositories.StaffRepository
}

func (s *stubStaffRepo) GetByUserID(_ context.Context, _ uuid.UUID) (*models.Staff, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubLogRepo struct {
	repositories.ActivityLogRepository
	entries []*models.ActivityLog
}

func (s *stubLogRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type stubTxManager struct {
	repos *repositories.Repositories
}

func (m *stubTxManager) RunInTx(_ context.Context, fn func(r *repositories.Repositories) error) error {
	return fn(m.repos)
}

func newLogoutApp(t *testing.T, sessions *stubSessionRepo) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey:          "handler-test-secret",
			Algorithm:          "HS256",
			AccessTokenMinutes: 15,
			RefreshTokenDays:   7,
		},
	}

	logs := &stubLogRepo{}
	activitySvc := services.NewActivityService(logs, &stubStaffRepo{}, services.NewRestrictionService())
	txManager := &stubTxManager{repos: &repositories.Repositories{
		Sessions:     sessions,
		ActivityLogs: logs,
	}}
	authService := services.NewAuthService(nil, sessions, activitySvc, txManager, cfg)
	handler := NewAuthHandler(authService, cfg)

	actor := &models.User{
		ID:       uuid.New(),
		Username: "alice",
		Status:   models.UserStatusActive,
	}

	app := fiber.New()
	app.Post("/logout", func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalActor, actor)
		return c.Next()
	}, handler.Logout)

	return app
}

func TestLogoutUnknownSessionIsNotMasked(t *testing.T) {
	sessions := &stubSessionRepo{failLookup: true}
	app := newLogoutApp(t, sessions)

	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("X-Refresh-Token", "never-issued")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"success":false`)
}

func TestLogoutMissingTokenIsBadRequest(t *testing.T) {
	app := newLogoutApp(t, &stubSessionRepo{})

	resp, err := app.Test(httptest.NewRequest("POST", "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogoutKnownSessionSucceeds(t *testing.T) {
	sessions := &stubSessionRepo{}
	app := newLogoutApp(t, sessions)

	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("X-Refresh-Token", "issued-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, sessions.invalidated)
}
