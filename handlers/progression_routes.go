// handlers/progression_routes.go
package handlers

import (
	"agent-grid-rewards/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// SetupProgressionRoutes wires the ledger-mutating user routes: check-in,
// task completion and claim, and redemption.
func SetupProgressionRoutes(router fiber.Router, deps Dependencies) {
	router.Post("/checkin", func(c *fiber.Ctx) error {
		result, err := deps.Checkins.CheckIn(c.UserContext(), middleware.UserFID(c))
		if err != nil {
			return respondError(c, err, "check-in failed")
		}
		return c.JSON(result)
	})

	router.Get("/tasks", func(c *fiber.Ctx) error {
		tasks, err := deps.Tasks.ListTasksForUser(c.UserContext(), middleware.UserFID(c))
		if err != nil {
			return respondError(c, err, "failed to load tasks")
		}
		return c.JSON(fiber.Map{"tasks": tasks})
	})

	router.Post("/tasks/:id/complete", func(c *fiber.Ctx) error {
		var req struct {
			Proof datatypes.JSON `json:"proof"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid request body", err)
			}
		}
		result, err := deps.Tasks.CompleteTask(c.UserContext(), middleware.UserFID(c), c.Params("id"), req.Proof)
		if err != nil {
			return respondError(c, err, "task completion failed")
		}
		return c.JSON(result)
	})

	router.Post("/completions/:id/claim", func(c *fiber.Ctx) error {
		result, err := deps.Tasks.ClaimTask(c.UserContext(), middleware.UserFID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err, "claim failed")
		}
		return c.JSON(result)
	})

	router.Get("/redeem/tiers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"tiers": deps.Redemptions.Tiers()})
	})

	router.Post("/redeem", func(c *fiber.Ctx) error {
		var req struct {
			Tier string `json:"tier"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		result, err := deps.Redemptions.Redeem(c.UserContext(), middleware.UserFID(c), req.Tier)
		if err != nil {
			return respondError(c, err, "redemption failed")
		}
		return c.JSON(result)
	})
}
