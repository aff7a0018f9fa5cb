package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/inventory"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

func recomputeStockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute-stock <product-id>...",
		Short: "Rewrite product in_stock from the active variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid product id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}

			return a.withDB(cmd.Context(), func(_ *config.Config, logg *logger.Logger, client *db.Client) error {
				inv := inventory.NewService(logg)
				for _, id := range ids {
					var inStock int
					err := client.WithTx(cmd.Context(), func(tx *gorm.DB) error {
						var err error
						inStock, err = inv.RecomputeAggregate(cmd.Context(), tx, id)
						return err
					})
					if err != nil {
						return fmt.Errorf("product %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s in_stock=%d\n", id, inStock)
				}
				return nil
			})
		},
	}
}
