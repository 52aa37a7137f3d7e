package main

import (
	"fmt"

	"github.com/aq2208/gstore-api/internal/adapter/repo"
	"github.com/aq2208/gstore-api/internal/bootstrap"
	"github.com/spf13/cobra"
)

func migrateCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the MySQL schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenMySQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := repo.MigrateUp(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 0 {
				return fmt.Errorf("--steps must not be negative")
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

			n, err := repo.MigrateDown(db, steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", n)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 = all)")
	cmd.AddCommand(down)

	return cmd
}
