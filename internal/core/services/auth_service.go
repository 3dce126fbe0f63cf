package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/config"
	"aegis-identity/internal/core/domain"
	"aegis-identity/internal/pkg/jwt"
	"aegis-identity/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthService handles authentication and session lifecycle
type AuthService struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	activitySvc *ActivityService
	txManager   repositories.TxManager
	cfg         *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	activitySvc *ActivityService,
	txManager repositories.TxManager,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		activitySvc: activitySvc,
		txManager:   txManager,
		cfg:         cfg,
	}
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Meta     ClientMeta
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	TokenType    string               `json:"token_type"`
}

// Authenticate verifies email+password. Unknown email and wrong
// password yield the same ErrInvalidCredentials so responses cannot be
// used to enumerate accounts; the audit trail is allowed to be more
// specific than the response. A suspended account fails distinctly.
func (s *AuthService) Authenticate(ctx context.Context, email, plaintext string, meta ClientMeta) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.auditBestEffort(ctx, RecordInput{
				ActivityType: "login_failed",
				Meta:         meta,
				Fields:       map[string]string{"email": email},
			})
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(plaintext, user.HashedPassword) {
		s.auditBestEffort(ctx, RecordInput{
			ActivityType: "login_failed",
			Meta:         meta,
			Fields:       map[string]string{"email": email},
		})
		return nil, domain.ErrInvalidCredentials
	}

	if user.Status == models.UserStatusSuspended {
		s.auditBestEffort(ctx, RecordInput{
			Actor:        user,
			ActivityType: "login_blocked",
			Meta:         meta,
		})
		return nil, domain.ErrAccountSuspended
	}

	return user, nil
}

// Login authenticates, issues a token pair, and creates the session.
// The session row and the success audit record land in one transaction:
// a login without an audit trail is not an acceptable outcome.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password, input.Meta)
	if err != nil {
		return nil, err
	}

	var resp *AuthResponse
	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		accessToken, refreshToken, err := s.issueSession(ctx, r.Sessions, user, input.Meta)
		if err != nil {
			return err
		}

		if _, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        user,
			ActivityType: "login",
			Meta:         input.Meta,
		}); err != nil {
			return err
		}

		resp = &AuthResponse{
			User:         user.ToResponse(),
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "bearer",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s", user.Username)
	return resp, nil
}

// Logout invalidates the session behind the supplied refresh token.
// The actor must already be resolved from a valid access token; the
// refresh token arrives out-of-band. Outcome is audited either way.
func (s *AuthService) Logout(ctx context.Context, actor *models.User, refreshToken string, meta ClientMeta) error {
	if refreshToken == "" {
		return domain.ErrMissingToken
	}

	tokenHash := password.HashToken(refreshToken)

	err := s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := r.Sessions.Invalidate(ctx, tokenHash, actor.ID); err != nil {
			return err
		}
		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "logout",
			Meta:         meta,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.auditBestEffort(ctx, RecordInput{
				Actor:        actor,
				ActivityType: "logout_failed",
				Meta:         meta,
			})
		}
		return err
	}

	log.Printf("✅ User logged out: %s", actor.Username)
	return nil
}

// LogoutAll revokes every active session for a user
func (s *AuthService) LogoutAll(ctx context.Context, actor *models.User, meta ClientMeta) error {
	return s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := r.Sessions.InvalidateAllByUserID(ctx, actor.ID); err != nil {
			return err
		}
		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "logout",
			Meta:         meta,
			Fields:       map[string]string{"scope": "all sessions"},
		})
		return err
	})
}

// Refresh validates a refresh token against the session store and
// rotates it: the old session is invalidated and a new one issued in
// the same transaction, so a replayed token can never resurrect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, domain.ErrMissingToken
	}

	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.SecretKey)
	if err != nil {
		s.auditBestEffort(ctx, RecordInput{
			ActivityType: "token_refresh_failed",
			Meta:         meta,
		})
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	tokenHash := password.HashToken(refreshToken)

	var resp *AuthResponse
	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if _, err := r.Sessions.Validate(ctx, tokenHash, claims.UserID); err != nil {
			return err
		}

		user, err := r.Users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if !user.IsActive() {
			return domain.ErrForbidden
		}

		if err := r.Sessions.Invalidate(ctx, tokenHash, claims.UserID); err != nil {
			return err
		}

		accessToken, newRefreshToken, err := s.issueSession(ctx, r.Sessions, user, meta)
		if err != nil {
			return err
		}

		if _, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        user,
			ActivityType: "token_refresh",
			Meta:         meta,
		}); err != nil {
			return err
		}

		resp = &AuthResponse{
			User:         user.ToResponse(),
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			TokenType:    "bearer",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// issueSession signs a token pair and persists the session row holding
// the refresh token's hash.
func (s *AuthService) issueSession(ctx context.Context, sessions repositories.SessionRepository, user *models.User, meta ClientMeta) (string, string, error) {
	accessToken, err := jwt.GenerateAccessToken(user.ID, s.cfg.JWT.SecretKey, s.cfg.JWT.Algorithm, s.cfg.JWT.AccessTokenMinutes)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	tokenID := uuid.New().String()
	refreshToken, err := jwt.GenerateRefreshToken(user.ID, tokenID, s.cfg.JWT.SecretKey, s.cfg.JWT.Algorithm, s.cfg.JWT.RefreshTokenDays)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}

	session := &models.Session{
		UserID:    user.ID,
		TokenHash: password.HashToken(refreshToken),
		IsValid:   true,
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}
	if err := sessions.Create(ctx, session); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// auditBestEffort records failure-path audit entries where the request
// already errors out. The attempt must still be recorded; a logger
// failure here is logged loudly but does not mask the original error.
func (s *AuthService) auditBestEffort(ctx context.Context, input RecordInput) {
	if _, err := s.activitySvc.Record(ctx, input); err != nil {
		log.Printf("⚠️ audit record lost (%s): %v", input.ActivityType, err)
	}
}
