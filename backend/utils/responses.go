package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse is the envelope for successful responses.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for failures.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Success writes a JSON success envelope.
func Success(c *fiber.Ctx, status int, data interface{}, message ...string) error {
	response := SuccessResponse{
		Success: true,
		Data:    data,
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	return c.Status(status).JSON(response)
}

// Fail writes a JSON error envelope.
func Fail(c *fiber.Ctx, status int, message string, details ...interface{}) error {
	response := ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Message: message,
	}
	if len(details) > 0 {
		response.Details = details[0]
	}
	return c.Status(status).JSON(response)
}

func Created(c *fiber.Ctx, data interface{}, message ...string) error {
	return Success(c, fiber.StatusCreated, data, message...)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusForbidden, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusNotFound, message)
}

// Conflict covers uniqueness violations, deletes blocked by dependents and
// invalid session state transitions.
func Conflict(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusConflict, message)
}

func ValidationFailed(c *fiber.Ctx, message string, details ...interface{}) error {
	return Fail(c, fiber.StatusUnprocessableEntity, message, details...)
}

func InternalServerError(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusInternalServerError, message)
}
