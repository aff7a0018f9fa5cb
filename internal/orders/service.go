package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

const (
	exchangeSalesStaff     = "System Exchange"
	exchangeRejectedReason = "Exchange request rejected"
)

// Service applies return and exchange side effects to orders. Every method
// runs on the caller's transaction.
type Service struct {
	repo  Repository
	logg  *logger.Logger
	clock func() time.Time
}

// NewService builds the order side-effect service. logg may be nil.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &Service{repo: repo, logg: logg, clock: time.Now}, nil
}

// Repository exposes the underlying repository for read paths.
func (s *Service) Repository() Repository {
	return s.repo
}

// Load returns the order locked for update.
func (s *Service) Load(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
				WithDetails(map[string]any{"orderId": orderID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ApplyReturnTracking records a return against the order. A refund covering
// the order amount cancels the order and ties the cancellation to the
// request; anything smaller marks a partial return and leaves it active.
func (s *Service) ApplyReturnTracking(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest) (*models.Order, error) {
	order, err := s.Load(ctx, tx, rr.OrderID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"returned_amount": rr.RefundAmount,
	}
	if rr.RefundAmount.GreaterThanOrEqual(order.Amount) {
		now := s.clock().UTC()
		reason := fmt.Sprintf("Full return approved — Request #%s", rr.ID)
		updates["status"] = enums.OrderStatusCanceled
		updates["cancel_reason"] = reason
		updates["cancel_date"] = now
		updates["canceled_by_return_request_id"] = rr.ID
		updates["return_status"] = enums.OrderReturnStatusFull

		order.Status = enums.OrderStatusCanceled
		order.CancelReason = &reason
		order.CancelDate = &now
		order.CanceledByReturnRequestID = &rr.ID
		order.ReturnStatus = enums.OrderReturnStatusFull
	} else {
		updates["return_status"] = enums.OrderReturnStatusPartial
		order.ReturnStatus = enums.OrderReturnStatusPartial
	}
	order.ReturnedAmount = rr.RefundAmount

	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply return tracking")
	}
	s.audit(ctx, "order.return_applied", order, rr.ID)
	return order, nil
}

// RevertReturnTracking undoes ApplyReturnTracking. Only an order canceled by
// this very request is restored; any other order is left as is and false is
// returned.
func (s *Service) RevertReturnTracking(ctx context.Context, tx *gorm.DB, orderID, returnRequestID uuid.UUID) (bool, error) {
	return s.restoreCanceled(ctx, tx, orderID, returnRequestID, true)
}

// CancelForExchange cancels the original order in favor of the exchange order.
func (s *Service) CancelForExchange(ctx context.Context, tx *gorm.DB, orderID, returnRequestID, newOrderID uuid.UUID) (*models.Order, error) {
	order, err := s.Load(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	reason := fmt.Sprintf("Exchanged to new order #%s", newOrderID)
	updates := map[string]any{
		"status":                        enums.OrderStatusCanceled,
		"cancel_reason":                 reason,
		"cancel_date":                   now,
		"canceled_by_return_request_id": returnRequestID,
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel original order")
	}
	order.Status = enums.OrderStatusCanceled
	order.CancelReason = &reason
	order.CancelDate = &now
	order.CanceledByReturnRequestID = &returnRequestID
	s.audit(ctx, "order.canceled_for_exchange", order, returnRequestID)
	return order, nil
}

// RestoreAfterExchange reactivates an original order canceled by the given
// exchange request. Return tracking columns are not touched.
func (s *Service) RestoreAfterExchange(ctx context.Context, tx *gorm.DB, orderID, returnRequestID uuid.UUID) (bool, error) {
	return s.restoreCanceled(ctx, tx, orderID, returnRequestID, false)
}

func (s *Service) restoreCanceled(ctx context.Context, tx *gorm.DB, orderID, returnRequestID uuid.UUID, resetTracking bool) (bool, error) {
	order, err := s.Load(ctx, tx, orderID)
	if err != nil {
		return false, err
	}
	if !order.IsCanceledBy(returnRequestID) {
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"order_id":          order.ID.String(),
				"return_request_id": returnRequestID.String(),
				"order_status":      order.Status.String(),
			}), "order not canceled by request, leaving untouched")
		}
		return false, nil
	}

	updates := map[string]any{
		"status":                        enums.OrderStatusCompleted,
		"cancel_reason":                 nil,
		"cancel_date":                   nil,
		"canceled_by_return_request_id": nil,
	}
	if resetTracking {
		updates["return_status"] = enums.OrderReturnStatusNone
		updates["returned_amount"] = decimal.Zero
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore order")
	}
	order.Status = enums.OrderStatusCompleted
	s.audit(ctx, "order.restored", order, returnRequestID)
	return true, nil
}

// CreateExchangeOrder inserts the confirmed replacement order for an exchange.
func (s *Service) CreateExchangeOrder(ctx context.Context, tx *gorm.DB, in ExchangeOrderInput) (*models.Order, error) {
	if in.Original == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "original order required")
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock()
	}
	method := enums.PaymentMethodExchange
	if in.PriceDifference.IsPositive() {
		method = enums.PaymentMethodPendingPayment
	}
	staff := exchangeSalesStaff

	order := &models.Order{
		UserID:          in.Original.UserID,
		Amount:          in.Price,
		ShippingFee:     decimal.Zero,
		Currency:        in.Original.Currency,
		Status:          enums.OrderStatusConfirmed,
		DeliveryStatus:  enums.DeliveryStatusNotShipped,
		PaymentMethod:   method,
		PaymentIntentID: fmt.Sprintf("exchange_%s_%d", in.ReturnRequestID, createdAt.UnixMilli()),
		Address:         in.Original.Address,
		Phone:           in.Original.Phone,
		Products: types.OrderLines{{
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Name:      in.ProductName,
			Price:     in.Price,
			Quantity:  1,
		}},
		ReturnStatus:   enums.OrderReturnStatusNone,
		ReturnedAmount: decimal.Zero,
		ExchangeInfo: &types.ExchangeInfo{
			OriginalOrderID: in.Original.ID,
			ReturnRequestID: in.ReturnRequestID,
			PriceDifference: in.PriceDifference,
			ExchangeType:    types.ExchangeTypeApproved,
		},
		SalesStaff: &staff,
	}
	if order.Currency == "" {
		order.Currency = enums.CurrencyVND
	}
	created, err := s.repo.WithTx(tx).Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exchange order")
	}
	s.audit(ctx, "order.exchange_created", created, in.ReturnRequestID)
	return created, nil
}

// CancelExchangeOrder cancels an exchange order whose request was rejected.
// Already canceled orders are left as is.
func (s *Service) CancelExchangeOrder(ctx context.Context, tx *gorm.DB, orderID, returnRequestID uuid.UUID) error {
	order, err := s.Load(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Status == enums.OrderStatusCanceled {
		return nil
	}
	now := s.clock().UTC()
	updates := map[string]any{
		"status":        enums.OrderStatusCanceled,
		"cancel_reason": exchangeRejectedReason,
		"cancel_date":   now,
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel exchange order")
	}
	order.Status = enums.OrderStatusCanceled
	s.audit(ctx, "order.exchange_canceled", order, returnRequestID)
	return nil
}

// SetPaymentMethod records how an exchange top-up will be paid. COD keeps the
// order confirmed; online methods wait for payment.
func (s *Service) SetPaymentMethod(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, method enums.PaymentMethod) (*models.Order, error) {
	order, err := s.Load(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	status := enums.OrderStatusConfirmed
	if method != enums.PaymentMethodCOD {
		status = enums.OrderStatusPending
	}
	updates := map[string]any{
		"payment_method": method,
		"status":         status,
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment method")
	}
	order.PaymentMethod = method
	order.Status = status
	return order, nil
}

func (s *Service) audit(ctx context.Context, action string, order *models.Order, returnRequestID uuid.UUID) {
	if s.logg == nil {
		return
	}
	s.logg.Audit(ctx, action, map[string]any{
		"order_id":          order.ID.String(),
		"return_request_id": returnRequestID.String(),
		"status":            order.Status.String(),
		"return_status":     order.ReturnStatus.String(),
		"returned_amount":   order.ReturnedAmount.String(),
	})
}
