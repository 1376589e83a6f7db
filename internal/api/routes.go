package api

import "github.com/gofiber/fiber/v2"

// RegisterRoutes attaches all API routes to the app.
func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")
	v1.Post("/expand", h.Expand)
	v1.Post("/datasets", h.CreateDataset)
	v1.Get("/events/stats", h.EventStats)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "caia-datachef",
			"version": "0.1.0",
			"docs":    "https://github.com/Caia-Tech/caia-datachef",
		})
	})
}
