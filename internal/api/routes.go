package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/api/handlers"
	"github.com/sllt-wei/plugin-summary/internal/api/middleware"
	"github.com/sllt-wei/plugin-summary/internal/bot"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// SetupRoutes registers the host-runtime boundary and admin routes.
func SetupRoutes(app *fiber.App, handler *bot.Handler, meta repository.SessionMetaRepository, jwtSecret string, logger *logrus.Logger) {
	h := handlers.NewMessageHandler(handler, meta, logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/v1")
	v1.Post("/messages", h.HandleMessage)
	v1.Get("/help", h.Help)

	admin := v1.Group("/sessions", middleware.AdminRequired(jwtSecret))
	admin.Post("/:id/enable", h.EnableSession)
	admin.Post("/:id/disable", h.DisableSession)
}
