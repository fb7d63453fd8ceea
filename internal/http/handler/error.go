package handler

import (
	"github.com/gofiber/fiber/v2"

	"invoicegw/internal/http/middleware"
	"invoicegw/internal/invoice"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes by failure class.
const (
	codeInvalidArgument = "INVALID_ARGUMENT"
	codeUnprocessable   = "UNPROCESSABLE"
	codeInternal        = "INTERNAL_ERROR"
)

// requestIDFromCtx extracts the request_id previously stored by
// middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeClassifiedError maps the domain error taxonomy onto HTTP statuses:
// invalid caller input → 400, unprocessable document state → 422,
// everything else → 500. The original message is passed through; an empty
// one is replaced with a generic placeholder.
func writeClassifiedError(c *fiber.Ctx, err error) error {
	msg := err.Error()
	if msg == "" {
		msg = "Unexpected error"
	}
	switch {
	case invoice.IsInputError(err):
		return writeError(c, fiber.StatusBadRequest, codeInvalidArgument, msg)
	case invoice.IsStateError(err):
		return writeError(c, fiber.StatusUnprocessableEntity, codeUnprocessable, msg)
	default:
		return writeError(c, fiber.StatusInternalServerError, codeInternal, msg)
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes
// responses for errors escaping the handlers.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, codeInvalidArgument, "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, codeInternal, "internal server error")
		}
	}
}
