package handlers

import (
	"aegis-identity/internal/adapters/http/middleware"
	"aegis-identity/internal/core/services"
	"aegis-identity/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// KYCHandler handles identity verification endpoints
type KYCHandler struct {
	kycService *services.KYCService
}

// NewKYCHandler creates a new KYC handler
func NewKYCHandler(kycService *services.KYCService) *KYCHandler {
	return &KYCHandler{kycService: kycService}
}

// Submit records a verification document for the calling user
// @Summary Submit KYC document
// @Description Submit an identity document reference for review; moves the account to pending review
// @Tags KYC
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.SubmitKYCInput true "Document data"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /kyc [post]
func (h *KYCHandler) Submit(c *fiber.Ctx) error {
	var input services.SubmitKYCInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if input.DocumentType == "" || input.DocumentRef == "" {
		return response.BadRequest(c, "Document type and reference are required")
	}

	kyc, err := h.kycService.Submit(c.Context(), middleware.ActorFromCtx(c), &input, middleware.ClientMeta(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Created(c, "KYC document submitted successfully", fiber.Map{
		"kyc": kyc,
	})
}

// ListMine returns the calling user's submission history
// @Summary List own KYC submissions
// @Description List the authenticated user's verification submissions
// @Tags KYC
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /kyc [get]
func (h *KYCHandler) ListMine(c *fiber.Ctx) error {
	actor := middleware.ActorFromCtx(c)

	submissions, err := h.kycService.ListForUser(c.Context(), actor.ID)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "KYC submissions retrieved successfully", fiber.Map{
		"submissions": submissions,
	})
}

// Review decides a pending submission
// @Summary Review KYC submission
// @Description Approve or reject a pending verification; approval activates and verifies the account
// @Tags KYC
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "KYC submission ID"
// @Param body body services.ReviewKYCInput true "Decision"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /kyc/{id}/review [post]
func (h *KYCHandler) Review(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid KYC submission ID")
	}

	var input services.ReviewKYCInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	kyc, err := h.kycService.Review(c.Context(), middleware.ActorFromCtx(c), id, &input, middleware.ClientMeta(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "KYC submission reviewed successfully", fiber.Map{
		"kyc": kyc,
	})
}
