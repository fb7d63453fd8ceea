package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"invoicegw/internal/archive"
	"invoicegw/internal/config"
	"invoicegw/internal/database"
	handlers "invoicegw/internal/http/handler"
	"invoicegw/internal/http/middleware"
	"invoicegw/internal/invoice/local"
	"invoicegw/internal/otel"
	"invoicegw/internal/repository"
	"invoicegw/internal/repository/postgres"
	"invoicegw/internal/service"
)

func main() {
	// Configuration from environment variables (.env auto-loaded if present).
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Job history is optional: without a database the gateway runs
	// stateless and records nothing.
	var db *sql.DB
	jobs := repository.Noop()
	if cfg.Database.Enabled() {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("failed to ensure database schema: %v", err)
		}
		jobs = postgres.NewJobPostgres(db)
	}

	// Artifact archiving is optional in the same way.
	store := archive.Disabled()
	if cfg.Archive.Enabled() {
		store, err = archive.NewMinIO(cfg.Archive)
		if err != nil {
			log.Fatalf("failed to initialize artifact archive: %v", err)
		}
	}

	engine := local.New(cfg.Engine)
	defer engine.Close()

	svc := service.NewConvertService(engine, store, jobs)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Combine requests carry a PDF, the XML and attachments.
		BodyLimit: 64 << 20,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	handlers.RegisterRoutes(app, db, svc)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.ShutdownWithContext(shutdownCtx)
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
