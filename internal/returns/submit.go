package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/policy"
	"github.com/angelmondragon/returns-engine/internal/refunds"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/outbox/payloads"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// Submit records a customer's return or exchange request against one of
// their delivered orders.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Detail, error) {
	if in.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if in.OrderID == uuid.Nil || len(in.Items) == 0 || strings.TrimSpace(in.Reason) == "" || strings.TrimSpace(in.Type) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: orderId, type, items, reason")
	}
	requestType, err := enums.ParseReturnRequestType(in.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid type, must be RETURN or EXCHANGE")
	}
	reason, err := enums.ParseReturnReason(in.Reason)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reason").
			WithDetails(map[string]any{"reason": in.Reason})
	}
	if requestType == enums.ReturnRequestTypeExchange && in.ExchangeToProductID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange target product required")
	}

	ctx = s.logg.WithUserID(ctx, in.UserID.String())
	ctx = s.logg.WithOrderID(ctx, in.OrderID.String())

	// The policy table is read before the transaction so the write path only
	// ever holds one pooled connection.
	policies, err := s.policyTable(ctx)
	if err != nil {
		return nil, err
	}

	var rr *models.ReturnRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.eligibleOrder(ctx, tx, in.UserID, in.OrderID)
		if err != nil {
			return err
		}
		items, err := resolveItems(order, in.Items)
		if err != nil {
			return err
		}
		if err := s.checkConflicts(ctx, tx, order.ID, items); err != nil {
			return err
		}

		images := types.StringList(in.Images)
		if images == nil {
			images = types.StringList{}
		}
		rr = &models.ReturnRequest{
			OrderID:     order.ID,
			UserID:      in.UserID,
			Type:        requestType,
			Reason:      reason,
			Description: strings.TrimSpace(in.Description),
			Images:      images,
			Status:      enums.ReturnRequestStatusPending,
			Items:       items,
		}

		switch requestType {
		case enums.ReturnRequestTypeReturn:
			breakdown := s.breakdown(policies, order, items, reason)
			rr.Breakdown = &breakdown
			rr.RefundAmount = decimal.Max(breakdown.TotalRefund, decimal.Zero)
		case enums.ReturnRequestTypeExchange:
			quote, err := s.exchanges.Quote(ctx, tx, *in.ExchangeToProductID, in.ExchangeToVariantID)
			if err != nil {
				return err
			}
			rr.ExchangeToProductID = &quote.ProductID
			rr.ExchangeToVariantID = quote.VariantID
			rr.AdditionalCost = quote.Price.Sub(items.Total()).Round(2)
		}

		if err := s.repo.WithTx(tx).Create(ctx, rr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequestSubmitted,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   rr.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: in.UserID, Role: enums.UserRoleUser.String()},
			Data: payloads.ReturnRequestSubmittedEvent{
				ReturnRequestID: rr.ID,
				OrderID:         rr.OrderID,
				UserID:          rr.UserID,
				Type:            rr.Type,
				Reason:          rr.Reason,
				RefundAmount:    rr.RefundAmount,
				Status:          rr.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_request_id": rr.ID.String(),
		"request_type":      rr.Type.String(),
		"reason":            string(rr.Reason),
		"refund_amount":     rr.RefundAmount.String(),
	}), "return request submitted")
	return s.committedDetail(ctx, rr), nil
}

// Quote previews the refund breakdown of a prospective RETURN without
// persisting anything.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (*types.RefundBreakdown, error) {
	if in.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if in.OrderID == uuid.Nil || len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: orderId, items")
	}
	reason, err := enums.ParseReturnReason(in.Reason)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reason").
			WithDetails(map[string]any{"reason": in.Reason})
	}

	order, err := s.orders.Repository().FindByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != in.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}
	items, err := resolveItems(order, in.Items)
	if err != nil {
		return nil, err
	}
	policies, err := s.policyTable(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := s.breakdown(policies, order, items, reason)
	return &breakdown, nil
}

func (s *Service) policyTable(ctx context.Context) (policy.Table, error) {
	table, err := s.policies.Table(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return policies")
	}
	return table, nil
}

func (s *Service) breakdown(table policy.Table, order *models.Order, items types.ReturnItems, reason enums.ReturnReason) types.RefundBreakdown {
	return refunds.Calculate(refunds.Input{
		Items:  items,
		Order:  order,
		Reason: reason,
		Policy: table.For(reason),
	}, s.fees)
}

func (s *Service) eligibleOrder(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.Repository().WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must be completed before it can be returned")
	}
	if order.DeliveryStatus != enums.DeliveryStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must be delivered before it can be returned")
	}

	since := order.CreatedAt
	if order.DeliveredAt != nil {
		since = *order.DeliveredAt
	}
	if s.clock().Sub(since) > s.window {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return period has expired").
			WithDetails(map[string]any{"windowDays": int(s.window.Hours() / 24)})
	}
	return order, nil
}

// resolveItems prices each requested line from the order itself.
func resolveItems(order *models.Order, inputs []ItemInput) (types.ReturnItems, error) {
	items := make(types.ReturnItems, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID == uuid.Nil || in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "each item needs a product and a positive quantity")
		}
		line, ok := order.Products.Find(in.ProductID, in.VariantID)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s not found in order", in.ProductID))
		}
		if in.Quantity > line.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("return quantity exceeds ordered quantity for product %s", in.ProductID)).
				WithDetails(map[string]any{"ordered": line.Quantity, "requested": in.Quantity})
		}
		items = append(items, types.ReturnItem{
			ProductID:   in.ProductID,
			VariantID:   in.VariantID,
			ProductName: line.Name,
			Quantity:    in.Quantity,
			UnitPrice:   line.Price,
		})
	}
	return items, nil
}

func (s *Service) checkConflicts(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, items types.ReturnItems) error {
	open, err := s.repo.WithTx(tx).FindOpenByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open return requests")
	}
	for _, existing := range open {
		for _, item := range items {
			for _, taken := range existing.Items {
				if sameLine(taken, item) {
					return pkgerrors.New(pkgerrors.CodeConflict, "item already has a return or exchange in progress").
						WithDetails(map[string]any{
							"productId":       item.ProductID,
							"returnRequestId": existing.ID,
						})
				}
			}
		}
	}
	return nil
}

func sameLine(a, b types.ReturnItem) bool {
	return types.OrderLine{ProductID: a.ProductID, VariantID: a.VariantID}.Matches(b.ProductID, b.VariantID)
}
