package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/delphi/v2/backend/internal/api"
	"github.com/wonny/delphi/v2/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

This command:
- serves run, pick, and profile endpoints
- triggers pipeline runs on POST /api/runs
- serves live lines when the realtime watcher is enabled

Endpoints:
  GET  /health              - Health check
  GET  /metrics             - Prometheus scrape endpoint
  POST /api/runs            - Trigger a pipeline run
  GET  /api/runs            - List recent runs
  GET  /api/runs/{id}       - Fetch one run with its stage trail
  GET  /api/picks           - List picks with stake plans
  GET  /api/profiles        - List loaded profiles
  GET  /api/lines           - Live line cache (realtime mode)

Example:
  go run ./cmd/delphi api
  go run ./cmd/delphi api --port 8091`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Delphi v2 API Server ===")

	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	// Override port if flag is set
	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	app.log.WithFields(map[string]interface{}{
		"port": app.cfg.Port,
		"env":  app.cfg.Env,
	}).Info("Initializing API server")

	// Line watcher (optional)
	lineCache, lineSync, feedManager := app.newLineWatcher()

	var linesHandler *handlers.LinesHandler
	if feedManager != nil {
		if err := feedManager.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start line watcher: %w", err)
		}
		defer feedManager.Stop()

		// Seed the watcher with today's slate; the daily scan job
		// keeps it current afterwards.
		if games, slateErr := app.oddsClient.Slate(cmd.Context(), app.cfg.Pipeline.SportKey, time.Now()); slateErr != nil {
			app.log.WithError(slateErr).Warn("Failed to seed line watcher with today's slate")
		} else {
			feedManager.WatchSlate(games)
		}

		linesHandler = handlers.NewLinesHandler(lineCache, lineSync, app.log)
	}

	// Create handlers
	h := api.Handlers{
		Runs:     handlers.NewRunsHandler(app.orchestrator, app.store, app.log),
		Picks:    handlers.NewPicksHandler(app.pickRepo, app.planner, app.log),
		Profiles: handlers.NewProfilesHandler(app.registry, app.log),
		Lines:    linesHandler,
	}

	// Create router and server
	router := api.NewRouter(h, app.metrics, app.log)
	server := api.New(app.cfg, app.log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	app.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", app.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/runs")
	fmt.Println("  GET  /api/runs")
	fmt.Println("  GET  /api/picks")
	fmt.Println("  GET  /api/profiles")
	if linesHandler != nil {
		fmt.Println("  GET  /api/lines")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	app.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.log.Info("Server stopped")
	return nil
}
