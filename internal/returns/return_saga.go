package returns

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/saga"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
)

const (
	StepReserveItems        = "reserve-items"
	StepApplyReturnTracking = "apply-return-tracking"
)

// returnTable is the approval path of a plain RETURN. Reject after approve
// runs its compensations.
func (s *Service) returnTable(rr *models.ReturnRequest, outcome *transitionOutcome) *saga.Table {
	return saga.New("return",
		saga.Step{
			Name: StepReserveItems,
			Forward: func(ctx context.Context, tx *gorm.DB) error {
				return s.inventory.Reserve(ctx, tx, rr.Items)
			},
			Compensate: func(ctx context.Context, tx *gorm.DB) error {
				return s.inventory.Unreserve(ctx, tx, rr.Items)
			},
		},
		saga.Step{
			Name: StepApplyReturnTracking,
			Forward: func(ctx context.Context, tx *gorm.DB) error {
				order, err := s.orders.ApplyReturnTracking(ctx, tx, rr)
				if err != nil {
					return err
				}
				outcome.orderCanceled = order.IsCanceledBy(rr.ID)
				return nil
			},
			Compensate: func(ctx context.Context, tx *gorm.DB) error {
				_, err := s.orders.RevertReturnTracking(ctx, tx, rr.OrderID, rr.ID)
				return err
			},
		},
	)
}
