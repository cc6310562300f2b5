// Package main is the operator CLI: schema migrations, fixture seeding and
// admin account bootstrap.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pomegranate/internal/app"
	"pomegranate/internal/config"
	"pomegranate/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "pomectl",
	Short:         "Pomegranate operator CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads config from the root flags, wires the application and runs
// fn. Schema migration is left to the caller.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(rootCmd.PersistentFlags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Database.MigrateOnStart = false

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil {
			log.Warnw("failed to release resources", "error", cerr)
		}
	}()

	return fn(ctx, a)
}
