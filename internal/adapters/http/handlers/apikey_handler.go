package handlers

import (
	"aegis-identity/internal/adapters/http/middleware"
	"aegis-identity/internal/core/services"
	"aegis-identity/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// APIKeyHandler handles API key endpoints
type APIKeyHandler struct {
	apiKeyService *services.APIKeyService
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(apiKeyService *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService: apiKeyService}
}

// Create mints a new API key for the calling user
// @Summary Create API key
// @Description Create an API key scoped to a subset of the caller's staff permissions. The plaintext is returned once.
// @Tags APIKeys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateAPIKeyInput true "Key parameters"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /apikeys [post]
func (h *APIKeyHandler) Create(c *fiber.Ctx) error {
	var input services.CreateAPIKeyInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.apiKeyService.Create(c.Context(), middleware.ActorFromCtx(c), middleware.ActorStaffFromCtx(c), &input, middleware.ClientMeta(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Created(c, "API key created successfully", fiber.Map{
		"key":       result.Key,
		"plaintext": result.Plaintext,
	})
}

// List returns the calling user's API keys
// @Summary List API keys
// @Description List the authenticated user's API keys. Key material is never returned.
// @Tags APIKeys
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /apikeys [get]
func (h *APIKeyHandler) List(c *fiber.Ctx) error {
	keys, err := h.apiKeyService.List(c.Context(), middleware.ActorFromCtx(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "API keys retrieved successfully", fiber.Map{
		"keys": keys,
	})
}

// Delete revokes one of the calling user's API keys
// @Summary Delete API key
// @Description Revoke an API key owned by the caller
// @Tags APIKeys
// @Produce json
// @Security BearerAuth
// @Param id path string true "API key ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /apikeys/{id} [delete]
func (h *APIKeyHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid API key ID")
	}

	if err := h.apiKeyService.Delete(c.Context(), middleware.ActorFromCtx(c), id, middleware.ClientMeta(c)); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "API key deleted successfully", nil)
}
