// Package main is the entry point for the Pomegranate API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"pomegranate/internal/app"
	"pomegranate/internal/config"
	v1 "pomegranate/internal/infrastructure/http/v1"
	"pomegranate/internal/infrastructure/http/v1/handlers"
	"pomegranate/pkg/logger"
)

func main() {
	fs := pflag.NewFlagSet("pomegranate-server", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlers.Version = app.Version
	log.Infow("starting pomegranate server", "version", app.Version, "driver", cfg.Database.Driver)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}

	routerCfg := v1.RouterConfig{
		Logger:           log,
		Database:         a.DB,
		Driver:           cfg.Database.Driver,
		AuthService:      a.Auth,
		Entities:         a.Entities,
		MetadataRegistry: a.Metadata,
		Audit:            a.Audit,
		Surveys:          a.Surveys,
		Debug:            cfg.Log.Development,
	}
	if a.Idempotency != nil {
		routerCfg.Idempotency = a.Idempotency
	}
	if a.Images != nil {
		routerCfg.Uploader = a.Images
	}
	if cfg.Observability.MetricsEnabled {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = a.Telemetry.Handler()
	}

	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      otelhttp.NewHandler(router, cfg.Observability.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Errorw("failed to release resources", "error", err)
	}

	log.Info("server stopped")
}
