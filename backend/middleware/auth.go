package middleware

import (
	"github.com/gofiber/fiber/v2"

	"selfpaced/backend/config"
	"selfpaced/backend/models"
	"selfpaced/backend/utils"
)

const claimsKey = "claims"

// Claims returns the identity stored by AuthMiddleware or OptionalAuth, or nil.
func Claims(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(claimsKey).(*utils.Claims)
	return claims
}

func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ExtractClaimsFromToken(c, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// OptionalAuth records the caller's identity when a valid token is sent and
// lets anonymous requests through untouched.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		claims, err := utils.ExtractClaimsFromToken(c, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		if claims.Role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden - Admin access required",
			})
		}
		return c.Next()
	}
}
