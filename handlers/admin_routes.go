// handlers/admin_routes.go
package handlers

import (
	"agent-grid-rewards/middleware"
	"agent-grid-rewards/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes expects router to already enforce the admin role.
func SetupAdminRoutes(router fiber.Router, tasks *services.TaskService) {
	router.Get("/tasks", func(c *fiber.Ctx) error {
		list, err := tasks.ListAllTasks(c.UserContext())
		if err != nil {
			return respondError(c, err, "failed to list tasks")
		}
		return c.JSON(fiber.Map{"tasks": list})
	})

	router.Post("/tasks", func(c *fiber.Ctx) error {
		var in services.TaskInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		task, err := tasks.CreateTask(c.UserContext(), in)
		if err != nil {
			return respondError(c, err, "failed to create task")
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	router.Put("/tasks/:id", func(c *fiber.Ctx) error {
		var patch services.TaskPatch
		if err := c.BodyParser(&patch); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		task, err := tasks.UpdateTask(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return respondError(c, err, "failed to update task")
		}
		return c.JSON(task)
	})

	router.Post("/completions/:id/verify", func(c *fiber.Ctx) error {
		var req struct {
			Approve *bool `json:"approve"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		if req.Approve == nil {
			return badRequest(c, "approve is required", nil)
		}
		rec, err := tasks.VerifyProof(c.UserContext(), c.Params("id"), *req.Approve, middleware.UserFID(c))
		if err != nil {
			return respondError(c, err, "verification failed")
		}
		return c.JSON(rec)
	})
}
