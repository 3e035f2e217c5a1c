package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/backstage/services/interactions/api"
	"example.com/backstage/services/interactions/internal/database"
	"example.com/backstage/services/interactions/internal/repository"
	"example.com/backstage/services/interactions/internal/service"
	"example.com/backstage/services/interactions/internal/telemetry"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serve command flags
	disableNewRelic bool
	skipSchema      bool
	serverPort      int
	gracefulTimeout int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Resolves the database URL, creates the connection pool, ensures the
schema exists and starts the interaction API server.

A schema bootstrap failure is logged and the server still starts.
It will gracefully shut down on receiving SIGINT or SIGTERM signals.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Serve-specific flags
	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "Skip the schema bootstrap at startup")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides PORT)")
	serveCmd.Flags().IntVar(&gracefulTimeout, "graceful-timeout", 30, "Graceful shutdown timeout in seconds")
}

// startServer initializes and starts the API server
func startServer() {
	// Override config with command line flags if provided
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	log.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"newrelic_enabled": cfg.NewRelic.Enabled && !disableNewRelic,
	}).Info("Initializing service components...")

	db := connect(context.Background(), cfg)
	defer func() {
		log.Info("Closing database connection...")
		if err := db.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing database connection")
		}
	}()

	if skipSchema {
		log.Info("Skipping schema bootstrap")
	} else {
		bootstrapSchema(db)
	}

	// Initialize New Relic if enabled
	var nrApp *newrelic.Application
	if !disableNewRelic {
		app, err := telemetry.InitNewRelic(cfg.NewRelic)
		if err != nil {
			log.Warnf("Failed to initialize New Relic: %v", err)
		} else if app != nil {
			nrApp = app
			log.Info("New Relic monitoring initialized successfully")
			defer nrApp.Shutdown(5 * time.Second)
		}
	}

	svc, err := service.NewService(service.ServiceConfig{
		Repository: repository.NewRepository(db),
		Logger:     log,
	})
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}

	server := api.NewServer(cfg, log, nrApp, svc, db)

	// Set up graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-stop
	log.Infof("Received signal %s, shutting down gracefully...", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("Server shutdown error: %v", err)
	}

	log.Info("Server shutdown complete")
}

// bootstrapSchema creates the tables if absent. Failure does not stop startup.
func bootstrapSchema(db database.DB) {
	log.Info("Ensuring database schema...")
	if err := database.EnsureSchema(db); err != nil {
		log.WithError(err).
			WithField("hint", "check that the database is reachable and the credentials/URL are correct").
			Error("Schema bootstrap failed; continuing startup")
		return
	}
	log.Info("Database schema is ready")
}
