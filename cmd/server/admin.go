package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"example.com/abonos/internal/app"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/reconcile"
)

func syncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch upcoming fixtures and reconcile the match calendar once",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			a, err := app.New(ctx, cfg, log, app.Options{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(ctx) }()

			res := a.Reconciler.Sync(ctx, force)
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if res.Status == reconcile.StatusFailed {
				return errors.New("sync failed: " + res.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the minimum interval between syncs")
	return cmd
}

func createAdminCmd() *cobra.Command {
	var (
		username string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user account",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			a, err := app.New(ctx, cfg, log, app.Options{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(ctx) }()

			if err := a.CreateUser(ctx, username, password, domain.Role(role)); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "created %s (%s)\n", username, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "account name")
	cmd.Flags().StringVar(&password, "password", "", "account password, at least 8 characters")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "admin or operador")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
