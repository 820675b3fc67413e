package middleware

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type completenessChecker interface {
	CanEnterApp(ctx context.Context, userID int64) (bool, error)
}

// ProfileComplete blocks authenticated routes until the fighter profile
// reaches 100% completeness. It runs on every navigation, not just signup,
// so a profile that regresses re-triggers the gate. Profile-editing routes
// are registered outside this middleware.
func ProfileComplete(checker completenessChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userIDStr, ok := c.Locals("user_id").(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		complete, err := checker.CanEnterApp(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check profile"})
		}
		if !complete {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Profile incomplete",
				"code":  "profile_incomplete",
			})
		}

		return c.Next()
	}
}
