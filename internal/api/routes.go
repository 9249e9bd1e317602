package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const maxUploadBytes = 20 * 1024 * 1024

// NewApp builds the fiber application with the standard middleware stack and
// every route registered.
func NewApp(handler *Handler, accessLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "dairyforms",
		DisableStartupMessage: true,
		BodyLimit:             maxUploadBytes,
	})

	app.Use(recover.New())
	if accessLog {
		app.Use(logger.New())
	}
	app.Use(compress.New())

	RegisterRoutes(app, handler)
	return app
}

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)

	api := app.Group("/api")
	api.Get("/forms", handler.ListForms)

	forms := api.Group("/forms/:form", handler.SessionMiddleware)
	forms.Get("", handler.ShowForm)
	forms.Put("/fields", handler.SetFields)
	forms.Post("/submit", handler.SubmitForReview)
	forms.Post("/edit", handler.Edit)
	forms.Post("/confirm", handler.Confirm)
	forms.Post("/start-new", handler.StartNew)
	forms.Post("/reset", handler.ResetForm)
	forms.Post("/draft/save", handler.SaveDraft)
	forms.Post("/draft/load", handler.LoadDraft)
	forms.Post("/photos", handler.StagePhoto)
	forms.Delete("/photos/:index", handler.UnstagePhoto)

	admin := api.Group("/admin/forms/:form", handler.adminGuards()...)
	admin.Get("/submissions", handler.AdminSubmissions)
	admin.Get("/summary", handler.AdminSummary)
	admin.Get("/export/csv", handler.AdminExportCSV)
	admin.Get("/export/json", handler.AdminExportJSON)
}
