// Package main is the entry point for the Pomegranate maintenance worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"pomegranate/internal/config"
	"pomegranate/internal/infrastructure/storage/sqlstore"
	"pomegranate/pkg/logger"
)

func main() {
	fs := pflag.NewFlagSet("pomegranate-worker", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

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

	log.Info("starting pomegranate worker")

	dbCfg := sqlstore.DefaultConfig(cfg.Database.Driver, cfg.Database.DSN)
	dbCfg.MaxOpenConns = 2
	dbCfg.MaxIdleConns = 1
	db, err := sqlstore.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	txm := sqlstore.NewTxManager(db, cfg.Database.StatementTimeout)
	maint := sqlstore.NewMaintenance(txm)
	idem := sqlstore.NewIdempotencyStore(txm, cfg.Idempotency.TTL)

	worker := NewWorker(log, cfg.Worker.Interval,
		Job{Name: "expired sessions", Run: maint.DeactivateExpiredSessions},
		Job{Name: "audit log", Run: func(ctx context.Context) (int64, error) {
			return maint.PurgeAudit(ctx, cfg.Worker.AuditRetention)
		}},
		Job{Name: "idempotency keys", Run: idem.CleanupExpired},
		Job{Name: "pool stats", Run: func(ctx context.Context) (int64, error) {
			db.LogPoolStats(ctx)
			return 0, nil
		}},
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
