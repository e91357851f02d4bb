package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/jogardn/storefront/internal/app"
	"github.com/jogardn/storefront/internal/fallback"
	"github.com/jogardn/storefront/pkg/models"
	"github.com/spf13/cobra"
)

var ordersLimit int

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Inspect stored orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print orders, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.OpenStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		orders, err := db.ListOrders(cmd.Context())
		if err != nil {
			return err
		}
		if ordersLimit > 0 && len(orders) > ordersLimit {
			orders = orders[:ordersLimit]
		}

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		return printOrders(cmd.OutOrStdout(), orders, loc)
	},
}

func init() {
	ordersListCmd.Flags().IntVarP(&ordersLimit, "limit", "n", 0, "Show at most this many orders (0 = all)")
	ordersCmd.AddCommand(ordersListCmd)
}

func printOrders(out io.Writer, orders []*models.Order, loc *time.Location) error {
	tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tCUSTOMER\tPHONE\tPRODUCT")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			o.ID,
			o.CreatedAt.In(loc).Format(fallback.DateLayout),
			o.Status,
			truncateText(o.CustomerName, 30),
			o.CustomerPhone,
			truncateText(o.ProductType, 30),
		)
	}
	if len(orders) == 0 {
		fmt.Fprintln(tw, "(no orders)\t\t\t\t\t")
	}
	return tw.Flush()
}

func truncateText(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
