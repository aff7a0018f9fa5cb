// Package returns owns the return request lifecycle: submission, the admin
// state machine and the order, inventory and exchange side effects each
// transition carries.
package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/exchanges"
	"github.com/angelmondragon/returns-engine/internal/notifications"
	"github.com/angelmondragon/returns-engine/internal/orders"
	"github.com/angelmondragon/returns-engine/internal/policy"
	"github.com/angelmondragon/returns-engine/internal/refunds"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/metrics"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/outbox/payloads"
	"github.com/angelmondragon/returns-engine/pkg/pagination"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

const (
	defaultReturnWindow = 7 * 24 * time.Hour
	recentLimit         = 5
	notifyTimeout       = 10 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type inventoryService interface {
	Reserve(ctx context.Context, tx *gorm.DB, items types.ReturnItems) error
	Unreserve(ctx context.Context, tx *gorm.DB, items types.ReturnItems) error
	Restore(ctx context.Context, tx *gorm.DB, items types.ReturnItems, reason enums.RestockReason) error
}

type orderService interface {
	Repository() orders.Repository
	Load(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error)
	ApplyReturnTracking(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest) (*models.Order, error)
	RevertReturnTracking(ctx context.Context, tx *gorm.DB, orderID, returnRequestID uuid.UUID) (bool, error)
	SetPaymentMethod(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, method enums.PaymentMethod) (*models.Order, error)
}

type exchangeOrchestrator interface {
	Quote(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID) (*exchanges.PriceQuote, error)
	Approve(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest, actor *outbox.ActorRef) (*exchanges.Result, error)
	Complete(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest) error
	Reverse(ctx context.Context, tx *gorm.DB, rr *models.ReturnRequest) error
}

type policySource interface {
	Table(ctx context.Context) (policy.Table, error)
}

// Notifier delivers the outcome of a transition to the customer.
type Notifier interface {
	Notify(ctx context.Context, recipient notifications.Recipient, rr *models.ReturnRequest, action enums.ReturnAction) error
}

// ServiceParams wires the lifecycle manager.
type ServiceParams struct {
	Repository   Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Inventory    inventoryService
	Orders       orderService
	Exchanges    exchangeOrchestrator
	Policies     policySource
	Fees         refunds.FeeLookup
	Notifier     Notifier
	Metrics      *metrics.ReturnMetrics
	Logger       *logger.Logger
	ReturnWindow time.Duration
}

// Service is the return request lifecycle manager.
type Service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory inventoryService
	orders    orderService
	exchanges exchangeOrchestrator
	policies  policySource
	fees      refunds.FeeLookup
	notifier  Notifier
	metrics   *metrics.ReturnMetrics
	logg      *logger.Logger
	window    time.Duration
	clock     func() time.Time
}

// NewService validates the dependencies and builds the lifecycle manager.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("returns repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory service required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order service required")
	case params.Exchanges == nil:
		return nil, fmt.Errorf("exchange orchestrator required")
	case params.Policies == nil:
		return nil, fmt.Errorf("policy source required")
	case params.Fees == nil:
		return nil, fmt.Errorf("shipping fee lookup required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	window := params.ReturnWindow
	if window <= 0 {
		window = defaultReturnWindow
	}
	return &Service{
		repo:      params.Repository,
		tx:        params.Tx,
		outbox:    params.Outbox,
		inventory: params.Inventory,
		orders:    params.Orders,
		exchanges: params.Exchanges,
		policies:  params.Policies,
		fees:      params.Fees,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      params.Logger,
		window:    window,
		clock:     time.Now,
	}, nil
}

type transitionOutcome struct {
	orderCanceled bool
	newOrderID    *uuid.UUID
}

// Transition applies an admin action to a request. The request row is locked
// for the whole transaction, so a concurrent second action sees the
// committed status and fails with InvalidTransition.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*Detail, error) {
	action, err := enums.ParseReturnAction(in.Action)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid action, must be approve, reject, or complete").
			WithDetails(map[string]any{"action": in.Action})
	}
	if in.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	if in.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !in.AdminRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff may update return requests")
	}

	ctx = s.logg.WithReturnRequestID(ctx, in.RequestID.String())
	ctx = s.logg.WithField(ctx, "action", action.String())
	started := s.clock()

	var (
		rr      *models.ReturnRequest
		from    enums.ReturnRequestStatus
		outcome transitionOutcome
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, in.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
		}

		next, err := NextStatus(current.Status, action)
		if err != nil {
			return err
		}
		from = current.Status

		now := s.clock().UTC()
		adminID := in.AdminID
		current.Status = next
		current.ApprovedBy = &adminID
		current.ApprovedAt = &now
		current.AdminNotes = normalizeNotes(in.Notes)

		actor := &outbox.ActorRef{UserID: in.AdminID, Role: in.AdminRole.String()}
		outcome, err = s.applySideEffects(ctx, tx, current, from, action, actor)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"status":      next,
			"approved_by": adminID,
			"approved_at": now,
			"admin_notes": current.AdminNotes,
		}
		if err := repo.Update(ctx, current.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
		}

		rr = current
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequestTransitioned,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.ReturnRequestTransitionedEvent{
				ReturnRequestID: current.ID,
				OrderID:         current.OrderID,
				UserID:          current.UserID,
				Type:            current.Type,
				Action:          action,
				FromStatus:      from,
				ToStatus:        next,
				AdminID:         &adminID,
				RefundAmount:    current.RefundAmount,
				Notes:           current.AdminNotes,
				NewOrderID:      outcome.newOrderID,
				OrderCanceled:   outcome.orderCanceled,
			},
		})
	})

	requestType := "unknown"
	if rr != nil {
		requestType = rr.Type.String()
	}
	result := "success"
	if err != nil {
		result = string(codeOf(err))
	}
	s.metrics.ObserveTransition(requestType, action.String(), result, s.clock().Sub(started))
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from_status":    from.String(),
		"to_status":      rr.Status.String(),
		"request_type":   rr.Type.String(),
		"order_canceled": outcome.orderCanceled,
	}), "return request transitioned")

	s.notify(ctx, rr, action)
	return s.committedDetail(ctx, rr), nil
}

func (s *Service) applySideEffects(
	ctx context.Context,
	tx *gorm.DB,
	rr *models.ReturnRequest,
	from enums.ReturnRequestStatus,
	action enums.ReturnAction,
	actor *outbox.ActorRef,
) (transitionOutcome, error) {
	var outcome transitionOutcome

	if rr.IsExchange() {
		switch {
		case action == enums.ReturnActionApprove:
			result, err := s.exchanges.Approve(ctx, tx, rr, actor)
			if err != nil {
				return outcome, err
			}
			outcome.newOrderID = &result.NewOrder.ID
			outcome.orderCanceled = true
		case action == enums.ReturnActionComplete:
			if err := s.exchanges.Complete(ctx, tx, rr); err != nil {
				return outcome, err
			}
		case isReversal(from, action):
			if err := s.exchanges.Reverse(ctx, tx, rr); err != nil {
				return outcome, err
			}
		}
		return outcome, nil
	}

	switch {
	case action == enums.ReturnActionApprove:
		if err := s.returnTable(rr, &outcome).Forward(ctx, tx); err != nil {
			return outcome, err
		}
	case action == enums.ReturnActionComplete:
		if err := s.inventory.Restore(ctx, tx, rr.Items, enums.RestockReasonFor(rr.Reason)); err != nil {
			return outcome, err
		}
		order, err := s.orders.Load(ctx, tx, rr.OrderID)
		if err != nil {
			return outcome, err
		}
		if !order.IsCanceledBy(rr.ID) {
			order, err = s.orders.ApplyReturnTracking(ctx, tx, rr)
			if err != nil {
				return outcome, err
			}
		}
		outcome.orderCanceled = order.IsCanceledBy(rr.ID)
	case isReversal(from, action):
		if err := s.returnTable(rr, &outcome).Compensate(ctx, tx); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// Get returns a request with its order and user summaries. Only the owner
// and staff may read it.
func (s *Service) Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*Detail, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}
	if rr.UserID != viewer.UserID && !viewer.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}
	return s.detail(ctx, rr)
}

// ListForUser lists the caller's own requests, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, params pagination.Params) (*List, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, ListFilters{UserID: &userID, OrderID: orderID}, params)
}

// ListAdmin lists every request matching the filters, newest first.
func (s *Service) ListAdmin(ctx context.Context, filters ListFilters, params pagination.Params) (*List, error) {
	return s.list(ctx, filters, params)
}

func (s *Service) list(ctx context.Context, filters ListFilters, params pagination.Params) (*List, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, listParams{Filters: filters, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list return requests")
	}
	items, err := s.details(ctx, rows)
	if err != nil {
		return nil, err
	}
	out := &List{Items: items}
	if next != nil {
		out.NextCursor = next.Encode()
	}
	return out, nil
}

// Stats aggregates requests created inside the window.
func (s *Service) Stats(ctx context.Context, window StatsWindow) (*Stats, error) {
	if window.From != nil && window.To != nil && window.To.Before(*window.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stats window ends before it starts")
	}

	byStatus, err := s.repo.CountGrouped(ctx, "status", window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count by status")
	}
	byType, err := s.repo.CountGrouped(ctx, "type", window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count by type")
	}
	byReason, err := s.repo.CountGrouped(ctx, "reason", window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count by reason")
	}
	refunded, err := s.repo.SumRefunded(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum refunds")
	}
	recentRows, err := s.repo.Recent(ctx, window, recentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent requests")
	}
	recent, err := s.details(ctx, recentRows)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByStatus:      make(map[enums.ReturnRequestStatus]int64, len(byStatus)),
		ByType:        make(map[enums.ReturnRequestType]int64, len(byType)),
		ByReason:      make(map[enums.ReturnReason]int64, len(byReason)),
		TotalRefunded: refunded.Round(2),
		Recent:        recent,
	}
	for k, v := range byStatus {
		stats.ByStatus[enums.ReturnRequestStatus(k)] = v
		stats.Total += v
	}
	for k, v := range byType {
		stats.ByType[enums.ReturnRequestType(k)] = v
	}
	for k, v := range byReason {
		stats.ByReason[enums.ReturnReason(k)] = v
	}
	return stats, nil
}

// SelectExchangePayment records how the customer pays the top-up of an
// approved exchange.
func (s *Service) SelectExchangePayment(ctx context.Context, in ExchangePaymentInput) (*orders.Summary, error) {
	if in.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	method, err := enums.ParsePaymentMethod(in.Method)
	if err != nil || !method.IsExchangeTopUpMethod() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cod or momo")
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rr, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, in.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
		}
		if rr.UserID != in.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
		}
		if !rr.IsExchange() {
			return pkgerrors.New(pkgerrors.CodeValidation, "not an exchange request")
		}
		if rr.Status != enums.ReturnRequestStatusApproved || rr.ExchangeOrderID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "exchange order not created yet")
		}
		if !rr.AdditionalCost.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "no additional payment required")
		}

		updated, err = s.orders.SetPaymentMethod(ctx, tx, *rr.ExchangeOrderID, method)
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExchangePaymentSelected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   updated.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: in.UserID, Role: enums.UserRoleUser.String()},
			Data: payloads.ExchangePaymentSelectedEvent{
				ReturnRequestID: rr.ID,
				NewOrderID:      updated.ID,
				UserID:          rr.UserID,
				PaymentMethod:   method,
				OrderStatus:     updated.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return orders.SummaryFrom(updated), nil
}

func (s *Service) notify(ctx context.Context, rr *models.ReturnRequest, action enums.ReturnAction) {
	if s.notifier == nil {
		return
	}
	// Delivery outlives the request that triggered it but is capped.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	users, err := s.repo.FindUsers(ctx, []uuid.UUID{rr.UserID})
	if err != nil {
		s.logg.Error(ctx, "failed to load notification recipient", err)
		s.metrics.IncNotificationFailure(action.String())
		return
	}
	user, ok := users[rr.UserID]
	if !ok {
		s.logg.Warn(s.logg.WithUserID(ctx, rr.UserID.String()), "notification recipient not found")
		s.metrics.IncNotificationFailure(action.String())
		return
	}
	recipient := notifications.Recipient{UserID: user.ID, Email: user.Email, Name: user.Name}
	if err := s.notifier.Notify(ctx, recipient, rr, action); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"recipient": recipient.Email,
		}), "failed to notify customer", err)
		s.metrics.IncNotificationFailure(action.String())
	}
}

// committedDetail is detail for a request whose write already committed; a
// failed summary lookup degrades to the bare request.
func (s *Service) committedDetail(ctx context.Context, rr *models.ReturnRequest) *Detail {
	d, err := s.detail(ctx, rr)
	if err == nil {
		return d
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"return_request_id": rr.ID.String(),
		"error":             err.Error(),
	}), "return request committed but summaries unavailable")
	bare := detailFrom(rr)
	return &bare
}

func (s *Service) detail(ctx context.Context, rr *models.ReturnRequest) (*Detail, error) {
	details, err := s.details(ctx, []models.ReturnRequest{*rr})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// details embeds order, user and approver summaries with one query per table.
func (s *Service) details(ctx context.Context, rows []models.ReturnRequest) ([]Detail, error) {
	out := make([]Detail, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	orderIDs := make([]uuid.UUID, 0, len(rows))
	userIDs := make([]uuid.UUID, 0, len(rows)*2)
	for _, rr := range rows {
		orderIDs = append(orderIDs, rr.OrderID)
		userIDs = append(userIDs, rr.UserID)
		if rr.ApprovedBy != nil {
			userIDs = append(userIDs, *rr.ApprovedBy)
		}
	}

	orderRows, err := s.orders.Repository().FindByIDs(ctx, orderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
	}
	ordersByID := make(map[uuid.UUID]*models.Order, len(orderRows))
	for i := range orderRows {
		ordersByID[orderRows[i].ID] = &orderRows[i]
	}
	users, err := s.repo.FindUsers(ctx, userIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load users")
	}

	for i := range rows {
		rr := &rows[i]
		d := detailFrom(rr)
		d.Order = orders.SummaryFrom(ordersByID[rr.OrderID])
		d.User = userSummary(users[rr.UserID])
		if rr.ApprovedBy != nil {
			d.Approver = userSummary(users[*rr.ApprovedBy])
		}
		out = append(out, d)
	}
	return out, nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}
