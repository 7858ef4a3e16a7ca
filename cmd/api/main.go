// Package main is the entry point for the modelio API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/pkordes/modelio/internal/catalog"
	"github.com/pkordes/modelio/internal/config"
	"github.com/pkordes/modelio/internal/handler"
	"github.com/pkordes/modelio/internal/logging"
	"github.com/pkordes/modelio/internal/middleware"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/service"
	"github.com/pkordes/modelio/openapi"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file in the working directory overrides the environment.
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	// --- Catalog ----------------------------------------------------------
	// Every resource is resolved here, so a bad catalog stops the server
	// before it accepts traffic.
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded", "path", cfg.CatalogPath, "resources", len(cat.Resources()))

	// --- Database ---------------------------------------------------------
	records, closeDB, err := repo.Open(context.Background(), cfg.DBDriver, cfg.DatabaseURL, cat.Registry)
	if err != nil {
		slog.Error("failed to connect to database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer closeDB()
	slog.Info("database connection established", "driver", cfg.DBDriver)

	transfer := service.NewTransfer(records, cat, cfg.TransferOptions())

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → MaxBodySize.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes))

	handler.NewServer(transfer, openapi.Document).Routes(r)

	// --- HTTP Server ------------------------------------------------------
	// Write timeout leaves room for large spreadsheet exports.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
