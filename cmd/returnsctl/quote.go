package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/internal/returns"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// operatorID identifies reads made from the CLI. It never owns a request, so
// access goes through the staff role.
var operatorID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("returnsctl"))

// quoteCmd re-prices an existing request against the current policy table
// and shipping fees, flagging drift from the stored refund.
func quoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <return-request-id>",
		Short: "Recompute the refund breakdown of an existing request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid return request id %q: %w", args[0], err)
			}
			return a.withDB(cmd.Context(), func(cfg *config.Config, logg *logger.Logger, client *db.Client) error {
				svc, err := returns.Wire(client.DB(), cfg, logg, nil)
				if err != nil {
					return err
				}
				detail, err := svc.Get(cmd.Context(), requestID, returns.Viewer{UserID: operatorID, Role: enums.UserRoleAdmin})
				if err != nil {
					return err
				}
				items := make([]returns.ItemInput, 0, len(detail.Items))
				for _, item := range detail.Items {
					items = append(items, returns.ItemInput{
						ProductID: item.ProductID,
						VariantID: item.VariantID,
						Quantity:  item.Quantity,
					})
				}
				breakdown, err := svc.Quote(cmd.Context(), returns.QuoteInput{
					UserID:  detail.UserID,
					OrderID: detail.OrderID,
					Reason:  string(detail.Reason),
					Items:   items,
				})
				if err != nil {
					return err
				}
				printBreakdown(cmd.OutOrStdout(), detail, breakdown)
				return nil
			})
		},
	}
}

func printBreakdown(out io.Writer, detail *returns.Detail, b *types.RefundBreakdown) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "request\t%s (%s, %s)\n", detail.ID, detail.Type, detail.Status)
	fmt.Fprintf(w, "reason\t%s\n", b.Reason)
	fmt.Fprintf(w, "items total\t%s\n", b.ItemsTotal.StringFixed(0))
	fmt.Fprintf(w, "refund\t%s (%d%%)\n", b.RefundAmount.StringFixed(0), b.RefundPercentage)
	fmt.Fprintf(w, "shipping zone\t%s\n", b.ShippingZone)
	fmt.Fprintf(w, "return shipping\t%s (customer %s, shop %s)\n",
		b.ReturnShippingFee.StringFixed(0), b.CustomerShippingFee.StringFixed(0), b.ShopShippingFee.StringFixed(0))
	fmt.Fprintf(w, "processing fee\t%s\n", b.ProcessingFee.StringFixed(0))
	fmt.Fprintf(w, "total refund\t%s\n", b.TotalRefund.StringFixed(0))
	_ = w.Flush()

	current := decimal.Max(b.TotalRefund, decimal.Zero)
	if detail.RefundAmount.Equal(current) {
		fmt.Fprintln(out, color.New(color.FgGreen).Sprint("stored refund matches"))
		return
	}
	fmt.Fprintf(out, "%s stored %s, current %s\n",
		color.New(color.FgYellow).Sprint("drift:"), detail.RefundAmount.StringFixed(0), current.StringFixed(0))
}
