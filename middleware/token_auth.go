package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"telereach/models"
)

// TokenAuth authenticates collaborator API calls against the api_tokens
// table. Expects "Authorization: Bearer <token>".
func TokenAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or malformed API token",
			})
		}

		token := strings.TrimPrefix(header, "Bearer ")
		var apiToken models.ApiToken
		err := db.Where("token = ? AND is_active = ?", token, true).First(&apiToken).Error
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API token",
			})
		}

		c.Locals("api_token", &apiToken)
		return c.Next()
	}
}
