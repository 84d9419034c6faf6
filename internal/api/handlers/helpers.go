package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetUserID reads the user id set by the auth middleware. Requests
// never reach a handler without it.
func GetUserID(c *fiber.Ctx) int64 {
	id, ok := c.Locals("user_id").(string)
	if !ok {
		return 0
	}
	userID, _ := strconv.ParseInt(id, 10, 64)
	return userID
}
