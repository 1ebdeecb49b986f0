// handlers/users_routes.go
package handlers

import (
	"agent-grid-rewards/middleware"
	"agent-grid-rewards/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(router fiber.Router, deps Dependencies) {
	// Upsert-on-first-seen from the gateway-forwarded identity.
	router.Post("/users/session", func(c *fiber.Ctx) error {
		user, created, err := deps.Users.EnsureUser(c.UserContext(), middleware.UserIdentity(c))
		if err != nil {
			return respondError(c, err, "failed to open session")
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{"user": user, "created": created})
	})

	router.Get("/users/me", func(c *fiber.Ctx) error {
		profile, err := deps.Users.GetProfile(c.UserContext(), middleware.UserFID(c))
		if err != nil {
			return respondError(c, err, "failed to load profile")
		}
		return c.JSON(profile)
	})

	router.Get("/users/me/checkins", func(c *fiber.Ctx) error {
		checkins, err := deps.Checkins.ListCheckins(c.UserContext(), middleware.UserFID(c), queryLimit(c))
		if err != nil {
			return respondError(c, err, "failed to load check-ins")
		}
		return c.JSON(fiber.Map{"checkins": checkins})
	})

	router.Get("/users/me/redemptions", func(c *fiber.Ctx) error {
		history, err := deps.Redemptions.ListRedemptions(c.UserContext(), middleware.UserFID(c), queryLimit(c))
		if err != nil {
			return respondError(c, err, "failed to load redemptions")
		}
		return c.JSON(fiber.Map{"redemptions": history})
	})

	router.Get("/users/me/achievements", func(c *fiber.Ctx) error {
		list, err := deps.Achievements.ListAchievements(c.UserContext(), middleware.UserFID(c))
		if err != nil {
			return respondError(c, err, "failed to load achievements")
		}
		return c.JSON(fiber.Map{"achievements": list})
	})

	router.Put("/users/me/notifications", func(c *fiber.Ctx) error {
		var req struct {
			URL   string `json:"url"`
			Token string `json:"token"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		target := services.NotificationTarget{URL: req.URL, Token: req.Token}
		if err := deps.Users.SetNotificationTarget(c.UserContext(), middleware.UserFID(c), target); err != nil {
			return respondError(c, err, "failed to save notification target")
		}
		return c.JSON(fiber.Map{"notifications_enabled": true})
	})

	router.Delete("/users/me/notifications", func(c *fiber.Ctx) error {
		if err := deps.Users.ClearNotificationTarget(c.UserContext(), middleware.UserFID(c)); err != nil {
			return respondError(c, err, "failed to clear notification target")
		}
		return c.JSON(fiber.Map{"notifications_enabled": false})
	})
}
