package admin

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsboard/usage_insights/backend/internal/app"
)

// Register wires up all /admin routes.
func Register(app *fiber.App, container *app.Container) {
	group := app.Group("/admin")
	registerReportRoutes(group, container)
}
