package server

import (
	"bytes"
	"encoding/json"

	"plaza/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ChangeMyPassword handles PUT /api/users/me/password
func (s *Server) ChangeMyPassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return respondError(c,
			models.NewValidationError("Current and new password are required"))
	}

	user, err := s.userService.ChangePassword(c.UserContext(),
		currentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me/profile. The body is sparse:
// absent keys leave the column untouched, explicit nulls clear it.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	var changes models.ProfileChanges
	var err error
	if changes.Username, err = stringField(raw, "username"); err != nil {
		return respondError(c, err)
	}
	if changes.Bio, err = stringField(raw, "bio"); err != nil {
		return respondError(c, err)
	}
	if changes.AvatarURL, err = stringField(raw, "avatar_url"); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), changes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

var jsonNull = []byte("null")

// stringField maps a JSON key to a three-state update field: missing key is
// absent, literal null clears, a string sets.
func stringField(raw map[string]json.RawMessage, key string) (models.Field[string], error) {
	value, ok := raw[key]
	if !ok {
		return models.Field[string]{}, nil
	}
	if bytes.Equal(bytes.TrimSpace(value), jsonNull) {
		return models.ClearField[string](), nil
	}
	var v string
	if err := json.Unmarshal(value, &v); err != nil {
		return models.Field[string]{}, models.NewValidationError("Field " + key + " must be a string or null")
	}
	return models.SetField(v), nil
}
