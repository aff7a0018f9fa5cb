// Package exchanges turns an approved exchange request into a replacement
// order and undoes it when the approval is reversed.
package exchanges

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/orders"
	"github.com/angelmondragon/returns-engine/internal/saga"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/outbox/payloads"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

const (
	StepReserveItems         = "reserve-items"
	StepCreateExchangeOrder  = "create-exchange-order"
	StepCancelOriginalOrder  = "cancel-original-order"
	StepDecrementTargetStock = "decrement-target-stock"
)

type inventoryService interface {
	Reserve(ctx context.Context, tx *gorm.DB, items types.ReturnItems) error
	Unreserve(ctx context.Context, tx *gorm.DB, items types.ReturnItems) error
	Restore(ctx context.Context, tx *gorm.DB, items types.ReturnItems, reason enums.RestockReason) error
	Adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, delta int) error
}

type orderService interface {
	Load(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error)
	CreateExchangeOrder(ctx context.Context, tx *gorm.DB, in orders.ExchangeOrderInput) (*models.Order, error)
	CancelForExchange(ctx context.Context, tx *gorm.DB, orderID, returnRequestID, newOrderID uuid.UUID) (*models.Order, error)
	RestoreAfterExchange(ctx context.Context, tx *gorm.DB, orderID, returnRequestID uuid.UUID) (bool, error)
	CancelExchangeOrder(ctx context.Context, tx *gorm.DB, orderID, returnRequestID uuid.UUID) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Params wires the orchestrator.
type Params struct {
	Repository Repository
	Inventory  inventoryService
	Orders     orderService
	Outbox     outboxPublisher
	Logger     *logger.Logger
}

// Orchestrator runs the exchange saga.
type Orchestrator struct {
	repo      Repository
	inventory inventoryService
	orders    orderService
	outbox    outboxPublisher
	logg      *logger.Logger
	clock     func() time.Time
}

// Result describes what an approval produced. PriceDifference is the
// exchange price minus the value of the returned items; positive means the
// customer owes a top-up.
type Result struct {
	NewOrder        *models.Order
	PriceDifference decimal.Decimal
}

// NewOrchestrator validates and builds the orchestrator.
func NewOrchestrator(params Params) (*Orchestrator, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("exchanges repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Orchestrator{
		repo:      params.Repository,
		inventory: params.Inventory,
		orders:    params.Orders,
		outbox:    params.Outbox,
		logg:      params.Logger,
		clock:     time.Now,
	}, nil
}

// Quote prices an exchange target for a request.
func (o *Orchestrator) Quote(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID) (*PriceQuote, error) {
	quote, err := o.repo.WithTx(tx).FindTargetPrice(ctx, productID, variantID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidPrice) && o.logg != nil {
			fields := map[string]any{"product_id": productID.String(), "alarm": "data_integrity"}
			if variantID != nil {
				fields["variant_id"] = variantID.String()
			}
			o.logg.Error(o.logg.WithFields(ctx, fields), "exchange target price missing", err)
		}
		return nil, err
	}
	return quote, nil
}

// Approve creates the replacement order, cancels the original and takes the
// exchange target out of stock. rr is updated in place with the new order id
// and additional cost.
func (o *Orchestrator) Approve(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest, actor *outbox.ActorRef) (*Result, error) {
	if err := validateExchange(rr); err != nil {
		return nil, err
	}
	result := &Result{}
	if err := o.table(rr, actor, result).Forward(ctx, tx); err != nil {
		return nil, err
	}
	return result, nil
}

// Complete puts the returned items back into stock.
func (o *Orchestrator) Complete(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest) error {
	if err := validateExchange(rr); err != nil {
		return err
	}
	return o.inventory.Restore(ctx, tx, rr.Items, enums.RestockReasonExchange)
}

// Reverse runs every compensation of an approved exchange.
func (o *Orchestrator) Reverse(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest) error {
	if err := validateExchange(rr); err != nil {
		return err
	}
	return o.table(rr, nil, &Result{}).Compensate(ctx, tx)
}

func (o *Orchestrator) table(rr *models.ReturnRequest, actor *outbox.ActorRef, result *Result) *saga.Table {
	return saga.New("exchange",
		saga.Step{
			Name: StepReserveItems,
			Forward: func(ctx context.Context, tx *gorm.DB) error {
				return o.inventory.Reserve(ctx, tx, rr.Items)
			},
			Compensate: func(ctx context.Context, tx *gorm.DB) error {
				return o.inventory.Unreserve(ctx, tx, rr.Items)
			},
		},
		saga.Step{
			Name: StepCreateExchangeOrder,
			Forward: func(ctx context.Context, tx *gorm.DB) error {
				return o.createExchangeOrder(ctx, tx, rr, actor, result)
			},
			Compensate: func(ctx context.Context, tx *gorm.DB) error {
				if rr.ExchangeOrderID == nil {
					return nil
				}
				return o.orders.CancelExchangeOrder(ctx, tx, *rr.ExchangeOrderID, rr.ID)
			},
		},
		saga.Step{
			Name: StepCancelOriginalOrder,
			Forward: func(ctx context.Context, tx *gorm.DB) error {
				_, err := o.orders.CancelForExchange(ctx, tx, rr.OrderID, rr.ID, *rr.ExchangeOrderID)
				return err
			},
			Compensate: func(ctx context.Context, tx *gorm.DB) error {
				_, err := o.orders.RestoreAfterExchange(ctx, tx, rr.OrderID, rr.ID)
				return err
			},
		},
		saga.Step{
			Name: StepDecrementTargetStock,
			Forward: func(ctx context.Context, tx *gorm.DB) error {
				return o.inventory.Adjust(ctx, tx, *rr.ExchangeToProductID, rr.ExchangeToVariantID, -1)
			},
			Compensate: func(ctx context.Context, tx *gorm.DB) error {
				return o.inventory.Adjust(ctx, tx, *rr.ExchangeToProductID, rr.ExchangeToVariantID, 1)
			},
		},
	)
}

func (o *Orchestrator) createExchangeOrder(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest, actor *outbox.ActorRef, result *Result) error {
	quote, err := o.Quote(ctx, tx, *rr.ExchangeToProductID, rr.ExchangeToVariantID)
	if err != nil {
		return err
	}
	original, err := o.orders.Load(ctx, tx, rr.OrderID)
	if err != nil {
		return err
	}

	diff := quote.Price.Sub(rr.Items.Total())
	newOrder, err := o.orders.CreateExchangeOrder(ctx, tx, orders.ExchangeOrderInput{
		ReturnRequestID: rr.ID,
		Original:        original,
		ProductID:       quote.ProductID,
		VariantID:       quote.VariantID,
		ProductName:     quote.ProductName,
		Price:           quote.Price,
		PriceDifference: diff,
		CreatedAt:       o.clock(),
	})
	if err != nil {
		return err
	}

	if err := o.repo.WithTx(tx).SaveExchangeOrder(ctx, rr.ID, newOrder.ID, diff); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record exchange order on request")
	}
	rr.ExchangeOrderID = &newOrder.ID
	rr.AdditionalCost = diff
	result.NewOrder = newOrder
	result.PriceDifference = diff

	return o.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventExchangeOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   newOrder.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.ExchangeOrderCreatedEvent{
			ReturnRequestID: rr.ID,
			OriginalOrderID: rr.OrderID,
			NewOrderID:      newOrder.ID,
			UserID:          rr.UserID,
			PriceDifference: diff,
			PaymentMethod:   newOrder.PaymentMethod,
		},
	})
}

func validateExchange(rr *models.ReturnRequest) error {
	if rr == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "return request required")
	}
	if !rr.IsExchange() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request is not an exchange")
	}
	if rr.ExchangeToProductID == nil || *rr.ExchangeToProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "exchange target product required")
	}
	return nil
}
