package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"plaza/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps an application error code to an HTTP status.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}

	switch appErr.Code {
	case models.CodeValidation, models.CodeInvalidCredentialHash:
		return fiber.StatusBadRequest
	case models.CodeInvalidCredentials, models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeDuplicateEmail, models.CodeDuplicateUsername:
		return fiber.StatusConflict
	case models.CodeTransientStorage:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError serializes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusForError(err), err)
}

// currentUserID returns the authenticated user's ID from locals. It is only
// valid behind the auth middleware.
func currentUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("userID").(string); ok {
		return id
	}
	return ""
}

// encodeCursor renders a pagination cursor as an opaque URL-safe token.
func encodeCursor(cursor *models.ArticleCursor) string {
	if cursor == nil {
		return ""
	}
	raw, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeCursor parses an opaque cursor token. An empty token means no cursor.
func decodeCursor(token string) (*models.ArticleCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	var cursor models.ArticleCursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	if cursor.ID == "" || cursor.CreatedAt.IsZero() {
		return nil, models.NewValidationError("Invalid cursor")
	}
	return &cursor, nil
}
