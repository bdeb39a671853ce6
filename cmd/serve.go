package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Centroplan-france/vcom-yuman-sync/core/loader"
	"github.com/Centroplan-france/vcom-yuman-sync/core/logger"
	"github.com/Centroplan-france/vcom-yuman-sync/core/middleware/auth"
	"github.com/Centroplan-france/vcom-yuman-sync/core/middleware/rayid"
	"github.com/Centroplan-france/vcom-yuman-sync/core/storage"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/conflict"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/report"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/Centroplan-france/vcom-yuman-sync/docs/swagger"
)

// @title vysync API
// @version 1.0
// @description Conflict review and run report API of the VCOM/Yuman reconciler.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the HTTP server exposing the conflict log and the archived run reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		if err := rt.cfg.Validate(); err != nil {
			return err
		}
		logg := rt.logger
		defer logg.Sync()

		// Report archive (optional)
		var archive report.Archive
		if rt.cfg.Storage.Enabled {
			client, err := storage.NewClient(rt.cfg.Storage)
			if err != nil {
				return err
			}
			archive = storage.NewArchiver(client, rt.cfg.Storage)
		}

		app := newApp(rt, archive)

		go func() {
			logg.Info("Starting server", zap.String("address", rt.cfg.Server.Address()), zap.Bool("auth", rt.cfg.Server.AuthEnabled()))
			if err := app.Listen(rt.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.ShutdownWithTimeout(rt.cfg.Server.ShutdownTimeout())
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

// newApp builds the fiber application with middleware and every feature
// mounted under /api/v1.
func newApp(rt *runtime, archive report.Archive) *fiber.App {
	logg := rt.logger
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every log line of a request carries it
	app.Use(rayid.New())
	app.Use(rt.metrics.Middleware())
	app.Use(requestLogger(logg))

	// Public routes
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(rt.metrics.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Use(auth.New(auth.Config{
		ApiKey: rt.cfg.Server.ApiKey,
		Skip:   []string{"/swagger", "/metrics", "/health"},
	}))

	mgr := loader.NewManager(logg)
	mgr.Register(conflict.NewFeature(rt.store, logg))
	mgr.Register(report.NewFeature(archive, archive != nil, logg))

	if err := mgr.LoadAll(app.Group("/api/v1")); err != nil {
		logg.Fatal("Failed to load features", zap.Error(err))
	}
	return app
}

func requestLogger(logg *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	}
}
