package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aq2208/gstore-api/internal/bootstrap"
	"github.com/spf13/cobra"
)

func adminCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var name, email, password string
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Create the admin account, or promote an existing user to ADMIN",
		Long: `Create the admin account, or promote an existing user to ADMIN.

The password is read from --password or $GSTORE_ADMIN_PASSWORD.

Examples:
  gstore-cli admin ensure --email ops@example.com --name Ops
  GSTORE_ADMIN_PASSWORD=... gstore-cli admin ensure --email ops@example.com --env prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("GSTORE_ADMIN_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and a password are required")
			}
			cfg, err := g.load()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenMySQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			rdb, err := bootstrap.OpenRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rdb.Close()

			svc := bootstrap.NewServices(cfg, db, rdb, nil)
			u, created, err := svc.Accounts.EnsureAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s (%s)\n", verb, u.Email, u.ID)
			return nil
		},
	}
	ensure.Flags().StringVar(&name, "name", "Administrator", "display name")
	ensure.Flags().StringVar(&email, "email", "", "admin email address")
	ensure.Flags().StringVar(&password, "password", "", "admin password")
	cmd.AddCommand(ensure)

	return cmd
}
