package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/controller/http/handlers"
	"github.com/kr1s57/vigilancex-lookup/internal/adapter/controller/ws"
	"github.com/kr1s57/vigilancex-lookup/internal/adapter/repository/clickhouse"
	"github.com/kr1s57/vigilancex-lookup/internal/app"
	"github.com/kr1s57/vigilancex-lookup/internal/config"
	"github.com/kr1s57/vigilancex-lookup/internal/usecase/lookup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := config.SetupLogger(cfg)
	logger.Info("Starting VIGILANCE X Lookup API",
		"env", cfg.App.Env,
		"port", cfg.App.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Blocklists
	ingester, err := app.NewIngester(cfg, logger)
	if err != nil {
		logger.Error("Failed to load blocklist registry", "error", err)
		os.Exit(1)
	}
	if ingester != nil {
		ingester.Start(ctx, cfg.Blocklist.RefreshInterval)
		defer ingester.Stop()
	}

	// History store (optional)
	var history lookup.HistoryRepository
	if cfg.History.Enabled {
		conn, err := clickhouse.NewConnection(ctx, &cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("ClickHouse unavailable, running without history", "error", err)
		} else {
			defer conn.Close()
			repo := clickhouse.NewLookupHistoryRepository(conn)
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Warn("Failed to create history table, running without history", "error", err)
			} else {
				history = repo
			}
		}
	}

	// Live feed
	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	engines := app.NewEngines(cfg, logger, ingester)
	service := lookup.NewService(lookup.ServiceConfig{
		IPEngine:  engines.IP,
		URLEngine: engines.URL,
		History:   history,
		Notifier:  hub,
		Logger:    logger,
	})

	r := handlers.NewRouter(handlers.RouterConfig{
		Config:    cfg,
		Service:   service,
		Ingester:  ingester,
		WebSocket: hub.ServeWS,
		Logger:    logger,
	})
	if !cfg.AdminEnabled() {
		logger.Warn("JWT_SECRET not set, admin routes disabled")
	}

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Analyses may wait for the slowest provider
		WriteTimeout: cfg.Lookup.ProviderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
