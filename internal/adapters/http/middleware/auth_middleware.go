package middleware

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/config"
	"aegis-identity/internal/core/domain"
	"aegis-identity/internal/core/services"
	"aegis-identity/internal/pkg/jwt"
	"aegis-identity/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Locals keys set by the auth middleware chain
const (
	LocalActor      = "actor"
	LocalActorStaff = "actorStaff"
	LocalAPIKey     = "actorAPIKey"
)

// HeaderAPIKey carries a minted API key as an alternative credential
const HeaderAPIKey = "X-API-Key"

// Authenticate resolves the request credential to a live user record.
// An X-API-Key header takes precedence and resolves through the key
// store; otherwise the access token is checked statelessly. Either way
// the store is hit once to confirm the account still exists and is
// active.
func Authenticate(cfg *config.Config, userRepo repositories.UserRepository, apiKeySvc *services.APIKeyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rawKey := c.Get(HeaderAPIKey); rawKey != "" {
			return authenticateAPIKey(c, userRepo, apiKeySvc, rawKey)
		}

		accessToken := extractAccessToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.SecretKey)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		user, err := userRepo.GetByID(c.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// valid token for a deleted account
				return response.NotFound(c, "User not found")
			}
			return response.InternalServerError(c, "Failed to resolve user")
		}

		if !user.IsActive() {
			return response.Forbidden(c, fmt.Sprintf("Account is %s", user.Status))
		}

		c.Locals(LocalActor, user)
		return c.Next()
	}
}

// authenticateAPIKey resolves a minted key to its owner. Unknown,
// deactivated, and expired keys all read the same to the caller.
func authenticateAPIKey(c *fiber.Ctx, userRepo repositories.UserRepository, apiKeySvc *services.APIKeyService, rawKey string) error {
	key, err := apiKeySvc.Authenticate(c.Context(), rawKey)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return response.Unauthorized(c, "Invalid API key")
		}
		return response.InternalServerError(c, "Failed to resolve API key")
	}

	user, err := userRepo.GetByID(c.Context(), key.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// valid key for a deleted account
			return response.Unauthorized(c, "Invalid API key")
		}
		return response.InternalServerError(c, "Failed to resolve user")
	}

	if !user.IsActive() {
		return response.Forbidden(c, fmt.Sprintf("Account is %s", user.Status))
	}

	c.Locals(LocalActor, user)
	c.Locals(LocalAPIKey, key)
	return c.Next()
}

// RequirePermission gates a route on one permission. An API-key caller
// is checked against the key's own granted set - keys never widen to
// their owner's staff grants. Matching is exact string comparison;
// denials are written to the activity log before the request is
// rejected.
func RequirePermission(permission string, staffRepo repositories.StaffRepository, activitySvc *services.ActivityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFromCtx(c)
		if actor == nil {
			return response.Unauthorized(c, "Unauthorized")
		}

		if key := APIKeyFromCtx(c); key != nil {
			if !key.HasPermission(permission) {
				auditDenied(c, activitySvc, actor, permission, "not granted to api key")
				return response.Forbidden(c, "You don't have permission to access this resource")
			}
			return c.Next()
		}

		staff, err := staffRepo.GetByUserID(c.Context(), actor.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				auditDenied(c, activitySvc, actor, permission, "no staff profile")
				return response.DomainError(c, domain.ErrNotStaff)
			}
			return response.InternalServerError(c, "Failed to resolve staff profile")
		}

		if !staff.HasPermission(permission) {
			auditDenied(c, activitySvc, actor, permission, "permission not granted")
			return response.Forbidden(c, "You don't have permission to access this resource")
		}

		c.Locals(LocalActorStaff, staff)
		return c.Next()
	}
}

// ResolveStaff loads the actor's staff profile into the context without
// gating on it. Routes whose rules depend on whether the caller is
// staff, not on one fixed permission, use this instead.
func ResolveStaff(staffRepo repositories.StaffRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFromCtx(c)
		if actor == nil {
			return response.Unauthorized(c, "Unauthorized")
		}

		staff, err := staffRepo.GetByUserID(c.Context(), actor.ID)
		if err == nil {
			c.Locals(LocalActorStaff, staff)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return response.InternalServerError(c, "Failed to resolve staff profile")
		}

		return c.Next()
	}
}

// ActorFromCtx returns the authenticated user set by Authenticate
func ActorFromCtx(c *fiber.Ctx) *models.User {
	actor, _ := c.Locals(LocalActor).(*models.User)
	return actor
}

// ActorStaffFromCtx returns the staff profile set by RequirePermission
// or ResolveStaff, nil when the actor is not staff
func ActorStaffFromCtx(c *fiber.Ctx) *models.Staff {
	staff, _ := c.Locals(LocalActorStaff).(*models.Staff)
	return staff
}

// APIKeyFromCtx returns the API key the request authenticated with,
// nil for token-authenticated requests
func APIKeyFromCtx(c *fiber.Ctx) *models.APIKey {
	key, _ := c.Locals(LocalAPIKey).(*models.APIKey)
	return key
}

// ClientMeta extracts the request origin for audit entries
func ClientMeta(c *fiber.Ctx) services.ClientMeta {
	meta := services.ClientMeta{}
	if ip := c.IP(); ip != "" {
		meta.IPAddress = &ip
	}
	if ua := c.Get("User-Agent"); ua != "" {
		meta.UserAgent = &ua
	}
	return meta
}

func extractAccessToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func auditDenied(c *fiber.Ctx, activitySvc *services.ActivityService, actor *models.User, permission, reason string) {
	if _, err := activitySvc.Record(c.Context(), services.RecordInput{
		Actor:        actor,
		ActivityType: "permission_denied",
		Meta:         ClientMeta(c),
		Fields: map[string]string{
			"permission": permission,
			"reason":     reason,
		},
	}); err != nil {
		log.Printf("⚠️ audit record lost (permission_denied): %v", err)
	}
}
