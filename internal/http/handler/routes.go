package handler

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"docstore/docs"
	"docstore/internal/config"
	"docstore/internal/http/middleware"
	"docstore/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; ownership of documents and files is enforced here, the
// rest lives in the services.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, fileSvc service.FileService, auth config.AuthConfig) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	identity := middleware.Identity(auth)

	documents := app.Group("/documents", identity)
	documents.Get("/", ListDocuments(docSvc))
	documents.Post("/", UploadDocument(docSvc))
	documents.Get("/:id", GetDocument(docSvc))
	documents.Get("/:id/download", DownloadDocument(docSvc, fileSvc))
	documents.Delete("/:id", DeleteDocument(docSvc))
	documents.Post("/:id/versions", AddVersion(docSvc))

	files := app.Group("/files", identity)
	files.Get("/", ListFiles(fileSvc))
	files.Post("/", UploadFile(fileSvc))
	files.Get("/paths", ListFilePaths(fileSvc))
	files.Get("/:id/download", DownloadFile(fileSvc))
	files.Delete("/:id", DeleteFile(fileSvc))
}
