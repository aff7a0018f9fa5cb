package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/internal/shipping"
)

func shippingFeeCmd(a *app) *cobra.Command {
	var (
		province   string
		district   string
		orderValue string
	)
	cmd := &cobra.Command{
		Use:   "shipping-fee",
		Short: "Quote the zone fee from the shop to a customer address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.config()
			if err != nil {
				return err
			}
			value := decimal.Zero
			if orderValue != "" {
				value, err = decimal.NewFromString(orderValue)
				if err != nil {
					return fmt.Errorf("invalid --order-value %q: %w", orderValue, err)
				}
			}
			calc := shipping.NewCalculator(cfg.Shipping)
			quote := calc.Fee(calc.ShopLocation(), shipping.Location{Province: province, District: district}, value)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "zone:      %s (%s)\n", quote.Zone, quote.Description)
			fmt.Fprintf(out, "zone fee:  %s\n", quote.ZoneFee.StringFixed(0))
			fmt.Fprintf(out, "amount:    %s\n", quote.Amount.StringFixed(0))
			fmt.Fprintf(out, "free:      %s\n", yesNo(quote.IsFree))
			fmt.Fprintf(out, "estimate:  %d days\n", quote.EstimatedDays)
			return nil
		},
	}
	cmd.Flags().StringVar(&province, "province", "", "customer province")
	cmd.Flags().StringVar(&district, "district", "", "customer district")
	cmd.Flags().StringVar(&orderValue, "order-value", "", "order total used for the free-shipping threshold")
	_ = cmd.MarkFlagRequired("province")
	return cmd
}
