// handlers/errors.go
package handlers

import (
	"errors"
	"strconv"

	"agent-grid-rewards/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps the service error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case services.IsNotFound(err):
		return fiber.StatusNotFound
	case services.IsBadInput(err):
		return fiber.StatusBadRequest
	case services.IsPrecondition(err):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrStore), errors.Is(err, services.ErrConcurrentUpdate):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error, msg string) error {
	body := fiber.Map{
		"error": msg,
		"code":  services.Reason(err),
		"cause": err.Error(),
	}
	var cooldown *services.CooldownError
	if errors.As(err, &cooldown) {
		body["hours_remaining"] = cooldown.HoursRemaining
	}
	return c.Status(statusFor(err)).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	body := fiber.Map{"error": msg}
	if err != nil {
		body["cause"] = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
