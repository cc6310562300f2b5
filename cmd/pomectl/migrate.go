package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pomegranate/internal/app"
	"pomegranate/internal/infrastructure/storage/sqlstore"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				applied, err := sqlstore.Migrate(ctx, a.DB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) on %s\n", applied, a.Config.Database.Driver)
				return nil
			})
		},
	})
}
