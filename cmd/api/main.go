package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"docstore/internal/cache"
	"docstore/internal/config"
	"docstore/internal/database"
	"docstore/internal/database/migration"
	handlers "docstore/internal/http/handler"
	"docstore/internal/http/middleware"
	"docstore/internal/logging"
	"docstore/internal/otel"
	"docstore/internal/repository/postgres"
	"docstore/internal/service"
	"docstore/internal/storage"
)

// @title Document Store API
// @version 1.0
// @description Versioned document and file storage.
// @BasePath /
func main() {
	cfg := config.Load()
	log := logging.New(cfg.Log, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing shutdown")
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	backend, err := newBackend(cfg)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.Storage.Driver).Fatal("failed to initialize storage")
	}
	store := storage.NewBlobStore(backend, cfg.Storage.AllowedExtensions, log)

	opts := []service.Option{service.WithLogger(log)}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rc.Close()
		opts = append(opts, service.WithCache(rc))
	}

	docRepo := postgres.NewDocumentPostgres(db)
	fileRepo := postgres.NewFilePostgres(db)
	pathRepo := postgres.NewUserFilePathPostgres(db)
	tx := postgres.NewTransactor(db)

	docSvc := service.NewDocumentService(store, docRepo, fileRepo, pathRepo, tx, opts...)
	fileSvc := service.NewFileService(store, fileRepo, pathRepo, tx, opts...)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             int(cfg.Storage.MaxUploadBytes),
		DisableStartupMessage: true,
	})

	metrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.WithError(err).Fatal("failed to register metrics")
	}

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if cfg.Storage.ServePublic && cfg.Storage.Driver == "local" {
		app.Static("/uploads", filepath.Join(cfg.Storage.Root, "uploads"), fiber.Static{ByteRange: true})
	}

	handlers.RegisterRoutes(app, db, docSvc, fileSvc, cfg.Auth)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "storage_driver": cfg.Storage.Driver}).Info("server starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}

func newBackend(cfg *config.AppConfig) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case "minio":
		return storage.NewMinIO(cfg.MinIO)
	default:
		return storage.NewLocal(cfg.Storage.Root)
	}
}
