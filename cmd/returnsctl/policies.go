package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/internal/policy"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

func policiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect and seed per-reason return policies",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the effective policy table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(_ *config.Config, _ *logger.Logger, client *db.Client) error {
				table, err := policy.NewStore(client.DB()).Table(cmd.Context())
				if err != nil {
					return err
				}
				printPolicies(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in policies, keeping existing overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(_ *config.Config, logg *logger.Logger, client *db.Client) error {
				inserted, err := policy.NewStore(client.DB()).SeedDefaults(cmd.Context())
				if err != nil {
					return err
				}
				logg.Info(logg.WithField(cmd.Context(), "inserted", inserted), "return policies seeded")
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d policies\n", color.New(color.FgGreen).Sprint("seeded"), inserted)
				return nil
			})
		},
	}

	cmd.AddCommand(list, seed, policiesSetCmd(a))
	return cmd
}

func policiesSetCmd(a *app) *cobra.Command {
	var p policy.Policy
	cmd := &cobra.Command{
		Use:   "set <reason>",
		Short: "Override the policy for one return reason",
		Long: "Replaces every field of the stored override. Flags left unset take their\n" +
			"zero value, so pass the full policy each time.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, err := enums.ParseReturnReason(args[0])
			if err != nil {
				return err
			}
			return a.withDB(cmd.Context(), func(_ *config.Config, logg *logger.Logger, client *db.Client) error {
				if err := policy.NewStore(client.DB()).Upsert(cmd.Context(), reason, p); err != nil {
					return err
				}
				logg.Audit(cmd.Context(), "return_policy.set", map[string]any{
					"reason":             reason,
					"refund_percentage":  p.RefundPercentage,
					"customer_pays_ship": p.CustomerPaysShipping,
					"shipping_fee_pct":   p.ShippingFeePercentage,
					"restore_inventory":  p.RestoreInventory,
					"requires_approval":  p.RequiresApproval,
				})
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgGreen).Sprint("updated"), reason)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&p.RefundPercentage, "refund", 100, "percentage of the item subtotal refunded (0-100)")
	flags.BoolVar(&p.CustomerPaysShipping, "customer-pays-shipping", false, "deduct return shipping from the refund")
	flags.IntVar(&p.ShippingFeePercentage, "shipping-fee", 0, "share of the return shipping fee the customer pays (0-100)")
	flags.BoolVar(&p.RestoreInventory, "restock", false, "return items to stock on completion")
	flags.BoolVar(&p.RequiresApproval, "approval", false, "require staff approval before completion")
	return cmd
}

func printPolicies(out io.Writer, table policy.Table) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REASON\tREFUND\tCUSTOMER SHIPPING\tRESTOCK\tAPPROVAL")
	for _, reason := range enums.ReturnReasons() {
		p := table.For(reason)
		shipping := "-"
		if p.CustomerPaysShipping {
			shipping = fmt.Sprintf("%d%%", p.ShippingFeePercentage)
		}
		fmt.Fprintf(w, "%s\t%d%%\t%s\t%s\t%s\n", reason, p.RefundPercentage, shipping, yesNo(p.RestoreInventory), yesNo(p.RequiresApproval))
	}
	_ = w.Flush()
}

func yesNo(v bool) string {
	if v {
		return color.New(color.FgGreen).Sprint("yes")
	}
	return color.New(color.FgYellow).Sprint("no")
}
