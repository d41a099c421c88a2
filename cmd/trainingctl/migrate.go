package main

import (
	"context"
	"fmt"

	"compliance-training/config"
	"compliance-training/database"
	"compliance-training/internal/app"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var skipSeed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed courses from the price map",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			log := app.SetupLogger(cfg.Env)

			a, err := app.New(context.Background(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := database.Migrate(a.DB, log); err != nil {
				return err
			}
			if skipSeed {
				fmt.Fprintln(cmd.OutOrStdout(), "schema migrated")
				return nil
			}
			n, err := app.SeedCourses(a.DB, a.Catalog)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema migrated, %d courses seeded\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "only migrate the schema")
	return cmd
}
