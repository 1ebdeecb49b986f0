// handlers/app.go
package handlers

import (
	"strings"

	"agent-grid-rewards/config"
	"agent-grid-rewards/logging"
	"agent-grid-rewards/middleware"
	"agent-grid-rewards/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP surface dispatches to.
type Dependencies struct {
	Users        *services.UserService
	Checkins     *services.CheckinService
	Tasks        *services.TaskService
	Redemptions  *services.RedemptionService
	Leaderboard  *services.LeaderboardService
	Achievements *services.AchievementService
	Log          logging.Logger
}

// NewDependencies builds every service over one shared core.
func NewDependencies(core *services.Core) Dependencies {
	return Dependencies{
		Users:        services.NewUserService(core),
		Checkins:     services.NewCheckinService(core),
		Tasks:        services.NewTaskService(core),
		Redemptions:  services.NewRedemptionService(core),
		Leaderboard:  services.NewLeaderboardService(core),
		Achievements: services.NewAchievementService(core),
		Log:          core.Log,
	}
}

func NewApp(cfg *config.Config, deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "agent-grid-rewards",
		ErrorHandler: fallbackErrorHandler(deps.Log),
	})
	app.Use(recover.New())

	// System routes sit outside gateway auth.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-FID, X-User-Roles",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, deps.Log, "/healthz", "/metrics"))

	secured := app.Group("/", middleware.UserContextMiddleware(deps.Log))
	SetupUserRoutes(secured, deps)
	SetupProgressionRoutes(secured, deps)
	SetupLeaderboardRoutes(secured, deps.Leaderboard)
	SetupAdminRoutes(secured.Group("/admin", middleware.RequireRole("admin")), deps.Tasks)

	return app
}

func fallbackErrorHandler(log logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled request error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
