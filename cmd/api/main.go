package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docudash/internal/config"
	"docudash/internal/database"
	"docudash/internal/database/migration"
	"docudash/internal/extract"
	handlers "docudash/internal/http/handler"
	"docudash/internal/http/middleware"
	"docudash/internal/otel"
	"docudash/internal/repository"
	"docudash/internal/repository/memory"
	"docudash/internal/repository/postgres"
	"docudash/internal/service"
	"docudash/internal/storage"
	"docudash/internal/summarizer"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	ctx := context.Background()
	loc := time.UTC

	// Tracing first so every later component picks up the global provider
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Document record store: in-memory by default, PostgreSQL when configured
	var db *sql.DB
	var docRepo repository.DocumentRepository
	switch cfg.Store.Driver {
	case "postgres":
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		docRepo = postgres.NewDocumentPostgres(db)
	case "memory":
		docRepo = memory.NewDocumentMemory()
	default:
		log.Fatalf("unknown store driver: %s", cfg.Store.Driver)
	}

	// Blob storage: local filesystem by default, S3-compatible when configured
	var objStore storage.Storage
	switch cfg.Storage.Driver {
	case "minio":
		objStore, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	case "local":
		objStore, err = storage.NewLocal(cfg.Storage.UploadDir)
		if err != nil {
			log.Fatalf("failed to initialize local storage: %v", err)
		}
	default:
		log.Fatalf("unknown storage driver: %s", cfg.Storage.Driver)
	}

	// AI summarization client
	ai, err := summarizer.NewGemini(ctx, cfg.Gemini)
	if err != nil {
		log.Fatalf("failed to initialize summarizer: %v", err)
	}
	defer ai.Close()

	docSvc := service.NewDocumentService(objStore, docRepo, ai, extract.NewPDFExtractor(), cfg.MaxUploadBytes)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Leave headroom above the upload limit so the service can reject
		// oversized files with a clean error instead of a connection reset.
		BodyLimit: int(cfg.MaxUploadBytes) + 1<<20,
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, docSvc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
