package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back database migrations",
		Long: `Apply (up, the default) or roll back (down) the order schema for the
configured DB_DRIVER.

Examples:
  storefront migrate
  DB_DRIVER=postgres storefront migrate up
  storefront migrate down`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			if direction != "up" && direction != "down" {
				return fmt.Errorf("unknown direction %q, want up or down", direction)
			}

			if err := repository.Migrate(cfg.Database, direction); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s, %s)\n", direction, cfg.Database.Driver)
			return nil
		},
	}
}
