package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, internal_error, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusForbidden, "forbidden", msg)
}

func errUnavailable(c *fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderRetryAfter, "5")
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// fromError maps a domain error onto its HTTP status. Unknown errors are
// logged and reported as 500 without leaking their text.
func fromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidGeometry),
		errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrValidation):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		return errUnauthorized(c, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		return errForbidden(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		return errUnavailable(c, "storage temporarily unavailable")
	}
	logging.FromContext(c.UserContext()).ErrorContext(c.UserContext(), "unhandled error",
		"path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
