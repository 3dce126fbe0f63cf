package response

import (
	"errors"

	"aegis-identity/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// DomainError maps a domain sentinel error to the matching HTTP
// response. Unknown errors become a generic 500 - internals are never
// surfaced to the caller.
func DomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return Unauthorized(c, "Invalid email or password")
	case errors.Is(err, domain.ErrTokenExpired):
		return Unauthorized(c, "Token has expired")
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrUnauthorized):
		return Unauthorized(c, "Invalid authentication credentials")
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return Unauthorized(c, "Invalid or expired refresh token")
	case errors.Is(err, domain.ErrMissingToken):
		return BadRequest(c, "Refresh token missing from request")
	case errors.Is(err, domain.ErrAccountSuspended):
		return Forbidden(c, "Account suspended")
	case errors.Is(err, domain.ErrNotStaff):
		return Forbidden(c, "User is not a staff member")
	case errors.Is(err, domain.ErrForbidden):
		return Forbidden(c, "You don't have permission to perform this action")
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, "Resource not found")
	case errors.Is(err, domain.ErrDuplicateSuperuser),
		errors.Is(err, domain.ErrDuplicateSuperuserDepartment),
		errors.Is(err, domain.ErrConflict):
		return Conflict(c, err.Error())
	default:
		return InternalServerError(c, "Internal server error")
	}
}
