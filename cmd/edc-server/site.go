package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehr/edc/internal/config"
	"github.com/ehr/edc/internal/platform/db"
)

func siteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage trial site schemas",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create and migrate the schema of a trial site",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Creating site schema: %s\n", db.SchemaName(name))
			if err := db.CreateSiteSchema(ctx, pool, name, migrationFiles(cfg)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Site created.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Site identifier (letters, digits, underscore)")

	cmd.AddCommand(createCmd)
	return cmd
}
