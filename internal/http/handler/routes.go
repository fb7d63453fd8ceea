package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"invoicegw/internal/service"
)

// RegisterRoutes attaches all HTTP routes to the provided Fiber app.
// Handlers stay thin; conversion semantics live in the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.ConvertService) {
	app.Get("/health", Health(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Post("/validate", Validate(svc))
	api.Post("/extract", Extract(svc))
	api.Post("/a3only", A3Only(svc))
	api.Post("/combine", Combine(svc))
	api.Post("/visualize", Visualize(svc))
	api.Post("/upgrade", Upgrade(svc))
	api.Post("/ubl", ToUBL(svc))
	api.Get("/jobs", ListJobs(svc))
}
