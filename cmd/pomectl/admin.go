package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pomegranate/internal/app"
)

func init() {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password required")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.Auth.CreateAdmin(ctx, username, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %q with id %d\n", username, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	rootCmd.AddCommand(cmd)
}
