// handlers/leaderboard_routes.go
package handlers

import (
	"agent-grid-rewards/middleware"
	"agent-grid-rewards/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(router fiber.Router, lb *services.LeaderboardService) {
	router.Get("/leaderboard", func(c *fiber.Ctx) error {
		scope, err := services.ParseScope(c.Query("scope"))
		if err != nil {
			return respondError(c, err, "invalid scope")
		}
		entries, err := lb.Leaderboard(c.UserContext(), scope, queryLimit(c))
		if err != nil {
			return respondError(c, err, "failed to load leaderboard")
		}
		body := fiber.Map{"scope": scope, "entries": entries}
		if scope == services.ScopeWeekly {
			body["week_start"] = lb.CurrentWeekKey()
		}
		return c.JSON(body)
	})

	router.Get("/leaderboard/me", func(c *fiber.Ctx) error {
		scope, err := services.ParseScope(c.Query("scope"))
		if err != nil {
			return respondError(c, err, "invalid scope")
		}
		entry, err := lb.Position(c.UserContext(), middleware.UserFID(c), scope)
		if err != nil {
			return respondError(c, err, "failed to load position")
		}
		return c.JSON(entry)
	})
}
