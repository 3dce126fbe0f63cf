package handlers

import (
	"aegis-identity/internal/adapters/http/middleware"
	"aegis-identity/internal/core/services"
	"aegis-identity/internal/pkg/pagination"
	"aegis-identity/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ActivityHandler handles audit log read endpoints
type ActivityHandler struct {
	activityService *services.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// ListMine returns the calling user's own audit trail
// @Summary List own activity
// @Description List the authenticated user's audit log entries
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /activity [get]
func (h *ActivityHandler) ListMine(c *fiber.Ctx) error {
	actor := middleware.ActorFromCtx(c)
	params := pagination.GetParams(c)

	entries, total, err := h.activityService.ListFor(c.Context(), actor, services.ListInput{
		TargetUserID: actor.ID,
		Offset:       params.Offset,
		Limit:        params.Limit,
	}, middleware.ClientMeta(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Activity retrieved successfully", pagination.NewResponse(entries, params, total))
}

// ListByUser returns another user's audit trail, gated on the view
// restriction; the read is itself audited
// @Summary List activity for a user
// @Description List audit log entries for one user. Cross-user reads require staff view rights.
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /activity/{userID} [get]
func (h *ActivityHandler) ListByUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userID"))
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	params := pagination.GetParams(c)

	entries, total, err := h.activityService.ListFor(c.Context(), middleware.ActorFromCtx(c), services.ListInput{
		TargetUserID: userID,
		Offset:       params.Offset,
		Limit:        params.Limit,
	}, middleware.ClientMeta(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Activity retrieved successfully", pagination.NewResponse(entries, params, total))
}
