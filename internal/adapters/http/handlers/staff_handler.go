package handlers

import (
	"aegis-identity/internal/adapters/http/middleware"
	"aegis-identity/internal/core/services"
	"aegis-identity/internal/pkg/pagination"
	"aegis-identity/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// StaffHandler handles staff profile endpoints
type StaffHandler struct {
	staffService *services.StaffService
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(staffService *services.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

// Create handles staff profile creation
// @Summary Create staff profile
// @Description Attach a staff profile with role, department and permissions to a user
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateStaffInput true "Staff data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /staff [post]
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	var input services.CreateStaffInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if input.UserID == uuid.Nil {
		return response.BadRequest(c, "User ID is required")
	}
	if input.Department == "" {
		return response.BadRequest(c, "Department is required")
	}
	if input.Role == "" {
		return response.BadRequest(c, "Role is required")
	}

	staff, err := h.staffService.Create(c.Context(), middleware.ActorFromCtx(c), middleware.ActorStaffFromCtx(c), &input, middleware.ClientMeta(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Created(c, "Staff profile created successfully", fiber.Map{
		"staff": staff.ToResponse(),
	})
}

// GetByID handles staff profile retrieval
// @Summary Get staff profile
// @Description Get one staff profile by ID
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /staff/{id} [get]
func (h *StaffHandler) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid staff ID")
	}

	staff, err := h.staffService.GetByID(c.Context(), middleware.ActorStaffFromCtx(c), id)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Staff profile retrieved successfully", fiber.Map{
		"staff": staff.ToResponse(),
	})
}

// List handles staff listing
// @Summary List staff profiles
// @Description List staff profiles with pagination
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /staff [get]
func (h *StaffHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	result, err := h.staffService.List(c.Context(), middleware.ActorStaffFromCtx(c), params.Offset, params.Limit)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Staff profiles retrieved successfully", pagination.NewResponse(result.Staff, params, result.Total))
}

// Update handles staff profile updates
// @Summary Update staff profile
// @Description Update role, department or permissions of a staff profile
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Param body body services.UpdateStaffInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /staff/{id} [patch]
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid staff ID")
	}

	var input services.UpdateStaffInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	staff, err := h.staffService.Update(c.Context(), middleware.ActorFromCtx(c), middleware.ActorStaffFromCtx(c), id, &input, middleware.ClientMeta(c))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Staff profile updated successfully", fiber.Map{
		"staff": staff.ToResponse(),
	})
}

// Delete handles staff profile deletion
// @Summary Delete staff profile
// @Description Remove a staff profile and its permission grants
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /staff/{id} [delete]
func (h *StaffHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid staff ID")
	}

	if err := h.staffService.Delete(c.Context(), middleware.ActorFromCtx(c), middleware.ActorStaffFromCtx(c), id, middleware.ClientMeta(c)); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Staff profile deleted successfully", nil)
}
