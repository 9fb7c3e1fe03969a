package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/http/middleware"
	"docstore/internal/model"
	"docstore/internal/service"
	"docstore/internal/storage"
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

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
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

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Most specific first; the category sentinels close each group.
var errorMappings = []errorMapping{
	{service.ErrNameRequired, fiber.StatusBadRequest, "NAME_REQUIRED", "document name is required"},
	{service.ErrInvalidAccessLevel, fiber.StatusBadRequest, "INVALID_ACCESS_LEVEL", "invalid access level"},
	{service.ErrIDRequired, fiber.StatusBadRequest, "INVALID_ID", "id is required"},
	{storage.ErrEmptyFile, fiber.StatusBadRequest, "EMPTY_FILE", "file is empty"},
	{storage.ErrUnsupportedFileType, fiber.StatusUnprocessableEntity, "UNSUPPORTED_FILE_TYPE", "file type is not allowed"},
	{model.ErrValidation, fiber.StatusBadRequest, "BAD_REQUEST", "bad request"},

	{service.ErrDocumentNotFound, fiber.StatusNotFound, "NOT_FOUND", "document not found"},
	{service.ErrFileNotFound, fiber.StatusNotFound, "NOT_FOUND", "file not found"},
	{service.ErrBlobMissing, fiber.StatusNotFound, "FILE_CONTENT_MISSING", "file content is missing"},
	{model.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "resource not found"},

	{service.ErrVersionConflict, fiber.StatusConflict, "VERSION_CONFLICT", "concurrent version upload, retry"},
	{service.ErrFileInUse, fiber.StatusConflict, "FILE_IN_USE", "file belongs to a document version"},
	{model.ErrConflict, fiber.StatusConflict, "CONFLICT", "conflict"},
}

// respondError maps a service error onto the error envelope. Unknown errors
// become 500 and are kept in locals for the access log.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return writeError(c, m.status, m.code, m.message)
		}
	}
	c.Locals(middleware.ErrorLocalKey, err.Error())
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
