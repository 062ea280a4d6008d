package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
)

var Version = "dev"

func main() {
	cfg := config.Load()
	logging.Configure(cfg.Log.Format, cfg.Log.Level, nil)

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront backend: checkout, payments and order reconciliation",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd(cfg))
	rootCmd.AddCommand(migrateCmd(cfg))
	rootCmd.AddCommand(ordersCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
