package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pizn-01/carmazium-sub000/internal/auth"
)

const userIDKey = "userID"

// JWTAuth verifies the Authorization bearer token and stores the subject id
// in the request locals. No token, no request.
func JWTAuth(validator *auth.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.BearerToken(c.Get("Authorization"))
		if err != nil {
			return Fail(c, err)
		}
		userID, err := validator.Validate(token)
		if err != nil {
			return Fail(c, err)
		}
		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// CallerID returns the authenticated user id set by JWTAuth.
func CallerID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
