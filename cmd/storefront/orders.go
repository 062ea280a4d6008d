package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func ordersCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and reconcile orders",
	}

	cmd.AddCommand(ordersListCmd(cfg))
	cmd.AddCommand(ordersGetCmd(cfg))
	cmd.AddCommand(ordersSetStatusCmd(cfg))

	return cmd
}

func ordersListCmd(cfg *config.Config) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			orders, err := a.orders.ListOrders(cmd.Context(), status)
			if err != nil {
				return err
			}
			return printOrderTable(cmd.OutOrStdout(), orders)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only list orders in this status (pending, paid, failed)")

	return cmd
}

func ordersGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Print one order as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			order, err := a.orders.GetOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		},
	}
}

// ordersSetStatusCmd runs the same reconciliation as the admin endpoint. The
// operator already holds the deployment config, so ADMIN_TOKEN is used as the
// credential.
func ordersSetStatusCmd(cfg *config.Config) *cobra.Command {
	var method, channel string

	cmd := &cobra.Command{
		Use:   "set-status ID STATUS",
		Short: "Manually move an order to pending, paid or failed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			order, err := a.orders.SetOrderStatus(cmd.Context(), args[0], models.UpdateOrderStatusRequest{
				Status:         models.OrderStatus(args[1]),
				PaymentMethod:  method,
				PaymentChannel: channel,
			}, cfg.Admin.Token)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "payment method to record (default manual_verification)")
	cmd.Flags().StringVar(&channel, "channel", "", "payment channel to record, e.g. GCASH")

	return cmd
}

func printOrderTable(w io.Writer, orders []*models.Order) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTOTAL\tCUSTOMER\tMETHOD\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%d %s\t%s\t%s\t%s\n",
			o.ID,
			o.Status,
			o.Total,
			o.Currency,
			o.CustomerName,
			models.Deref(o.PaymentMethod),
			o.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
