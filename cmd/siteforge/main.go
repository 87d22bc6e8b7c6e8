// Package main is the entry point for the SiteForge API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siteforge/internal/ai"
	"siteforge/internal/assembler"
	"siteforge/internal/config"
	"siteforge/internal/database"
	"siteforge/internal/generator"
	"siteforge/internal/handlers"
	"siteforge/internal/hosting"
	"siteforge/internal/models"
	"siteforge/internal/pipeline"
	"siteforge/internal/router"
	"siteforge/internal/session"
	"siteforge/internal/storage"
	"siteforge/internal/store"
)

func main() {
	// Structured logger — outputs text with debug level; swap the handler
	// for JSON if log aggregation needs it.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (Redis-compatible session store).
	valkeyClient, err := session.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Initialize session store backed by Valkey.
	// In non-development environments, mark session cookies as Secure (HTTPS-only).
	sessionStore := session.NewStore(valkeyClient, !cfg.IsDev())

	// Initialize the site store.
	siteStore := store.NewSiteStore(db)

	// Initialize the AI provider registry with all configured providers.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"gemini": {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL},
		"openai": {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"claude": {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
	})

	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)

	// Hosting platform client and deployment poller. The cancel probe
	// lets a cancellation recorded through the API stop an in-progress
	// poll loop on its next tick.
	hostingClient := hosting.NewClient(cfg.VercelToken, cfg.VercelTeamID, cfg.VercelAPIURL)
	poller := hosting.NewPoller(hostingClient).WithCancelCheck(func(ctx context.Context, deploymentID string) bool {
		site, err := siteStore.FindByDeploymentID(deploymentID)
		if err != nil {
			return false
		}
		status, err := siteStore.DeploymentStatus(site.ID)
		return err == nil && status == models.DeployStatusCanceled
	})

	// Connect to S3-compatible object storage for bundle archives
	// (optional — deployments work without it).
	var archiver pipeline.Archiver
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		archiver = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured — bundle archiving disabled")
	}

	// Wire the generation and deployment pipeline.
	gen := generator.New(aiRegistry)
	orchestrator := pipeline.New(gen, siteStore, assembler.New(), hostingClient, poller, archiver)

	// Create the handler group with its dependencies.
	api := handlers.NewAPI(siteStore, orchestrator, gen, aiRegistry)

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessionStore, api)

	// Create the HTTP server with sensible timeouts.
	// WriteTimeout must accommodate the AI and deployment endpoints: an LLM
	// call plus a polled deployment can take a few minutes end to end.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
