package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"sniffstore/core/loader"
	"sniffstore/core/logger"
	"sniffstore/core/middleware/auth"
	"sniffstore/core/middleware/rayid"
	"sniffstore/feature/files"
	"sniffstore/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		logg := rt.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if err := rt.store.Ping(cmd.Context()); err != nil {
			logg.Warn("Storage bucket is not reachable", zap.String("bucket", rt.store.Bucket()), zap.Error(err))
		}
		if rt.db != nil {
			logg.Info("Upload ledger enabled")
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             rt.cfg.Server.BodyLimit(),
		})

		mgr := loader.NewManager()
		mgr.Register(files.NewFeature(rt.service, logg))
		mgr.Register(integrity.NewFeature(integrity.NewService(rt.service, rt.store, rt.db, logg)))

		// RayID first so every later log line carries it
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
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
		})

		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))
		if !rt.cfg.Server.AuthEnabled() {
			logg.Warn("API key is empty, requests are not authenticated")
		}

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		go func() {
			logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
			if err := app.Listen(":" + rt.cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
