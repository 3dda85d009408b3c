package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"docudash/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, delegate to the service, translate errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	// Serve the OpenAPI document and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	// Static segments must be registered before the :id routes so
	// "search" and "filter" are not captured as ids.
	api.Get("/documents/search/:query", SearchDocuments(docSvc))
	api.Get("/documents/filter/:type", FilterDocuments(docSvc))
	api.Get("/documents/:id", GetDocument(docSvc))
	api.Get("/documents", ListDocuments(docSvc))
	api.Get("/stats", GetStats(docSvc))
	api.Post("/upload", UploadDocument(docSvc))
	api.Post("/documents/:id/summary", RegenerateSummary(docSvc))
	api.Get("/preview/:serverName", PreviewDocument(docSvc))
	api.Get("/download/:serverName", DownloadDocument(docSvc))
	api.Delete("/documents/:id", DeleteDocument(docSvc))
}

// HealthCheck reports readiness. With a database configured it checks
// connectivity; in memory-store mode there is no dependency to probe.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments returns every document, newest first.
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := docSvc.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(docs)
	}
}

// GetDocument returns a single document by numeric id.
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(doc)
	}
}

// SearchDocuments returns documents matching the path query across name,
// summary, category, and tags.
func SearchDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Params("query")
		if decoded, err := url.PathUnescape(query); err == nil {
			query = decoded
		}
		docs, err := docSvc.Search(c.UserContext(), query)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(docs)
	}
}

// FilterDocuments partitions documents by summary presence
// ("with-summary" / "without-summary"); any other type returns all.
func FilterDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := docSvc.Filter(c.UserContext(), service.FilterType(c.Params("type")))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(docs)
	}
}

// GetStats returns the aggregate dashboard statistics.
func GetStats(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := docSvc.Stats(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(stats)
	}
}

// UploadDocument accepts a multipart upload (field name: pdf), stores the
// file, and returns the created record with its AI analysis when available.
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("pdf")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "a PDF file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := docSvc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidFileType):
				return writeError(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE", "only PDF files are allowed")
			case errors.Is(err, service.ErrFileTooLarge):
				return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the maximum upload size")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// RegenerateSummary re-runs AI analysis for an existing document. Unlike
// upload, a failed analysis is reported to the caller.
func RegenerateSummary(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.RegenerateSummary(c.UserContext(), id)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			case errors.Is(err, service.ErrFileMissing):
				return writeError(c, fiber.StatusNotFound, "FILE_MISSING", "stored file is missing")
			case errors.Is(err, service.ErrSummaryFailed):
				return writeError(c, fiber.StatusInternalServerError, "SUMMARY_FAILED", "failed to generate summary")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(doc)
	}
}

// PreviewDocument streams the stored file inline so browsers render it.
func PreviewDocument(docSvc service.DocumentService) fiber.Handler {
	return streamDocument(docSvc, "inline")
}

// DownloadDocument streams the stored file as an attachment named after the
// original upload.
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return streamDocument(docSvc, "attachment")
}

func streamDocument(docSvc service.DocumentService, disposition string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, doc, err := docSvc.Stream(c.UserContext(), c.Params("serverName"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrFileMissing) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentType, "application/pdf")
		if disposition == "attachment" {
			c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.OriginalName+`"`)
		} else {
			c.Set(fiber.HeaderContentDisposition, "inline")
		}
		// SendStream closes rc once the response body is drained.
		return c.SendStream(rc, int(doc.FileSize))
	}
}

// DeleteDocument removes a document record and its stored file.
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Document deleted successfully"})
	}
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
