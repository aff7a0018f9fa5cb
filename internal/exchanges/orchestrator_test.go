package exchanges

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/inventory"
	"github.com/angelmondragon/returns-engine/internal/orders"
	"github.com/angelmondragon/returns-engine/pkg/db/dbtest"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

type exchangeFixture struct {
	db       *gorm.DB
	orch     *Orchestrator
	original *models.Order
	returned *models.Product
	target   *models.Product
	variants []models.ProductVariant
	rr       *models.ReturnRequest
}

func newExchangeFixture(t *testing.T, targetPrice int64) *exchangeFixture {
	t.Helper()
	conn := dbtest.Open(t)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), nil)
	require.NoError(t, err)
	orch, err := NewOrchestrator(Params{
		Repository: NewRepository(conn),
		Inventory:  inventory.NewService(nil),
		Orders:     orderSvc,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	user := dbtest.User(t, conn, enums.UserRoleUser)
	returned := dbtest.SimpleProduct(t, conn, 400000, 2)
	target, variants := dbtest.VariantProduct(t, conn, targetPrice, 3, 2)
	original := dbtest.Order(t, conn, user.ID, 400000, types.OrderLines{
		{ProductID: returned.ID, Name: returned.Name, Price: decimal.NewFromInt(400000), Quantity: 1},
	}, time.Now().Add(-48*time.Hour))

	rr := &models.ReturnRequest{
		OrderID:             original.ID,
		UserID:              user.ID,
		Type:                enums.ReturnRequestTypeExchange,
		Reason:              enums.ReturnReasonWrongSize,
		Status:              enums.ReturnRequestStatusApproved,
		Images:              types.StringList{},
		Items:               types.ReturnItems{{ProductID: returned.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(400000)}},
		ExchangeToProductID: &target.ID,
		ExchangeToVariantID: &variants[0].ID,
	}
	require.NoError(t, conn.Create(rr).Error)

	return &exchangeFixture{
		db:       conn,
		orch:     orch,
		original: original,
		returned: returned,
		target:   target,
		variants: variants,
		rr:       rr,
	}
}

func (f *exchangeFixture) order(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, f.db.First(&o, "id = ?", id).Error)
	return o
}

func (f *exchangeFixture) stock(t *testing.T) (variant, aggregate int) {
	t.Helper()
	var v models.ProductVariant
	require.NoError(t, f.db.First(&v, "id = ?", f.variants[0].ID).Error)
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", f.target.ID).Error)
	return v.Stock, p.InStock
}

func TestApproveCreatesExchangeOrderAndCancelsOriginal(t *testing.T) {
	f := newExchangeFixture(t, 450000)
	ctx := context.Background()

	var result *Result
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = f.orch.Approve(ctx, tx, f.rr, &outbox.ActorRef{UserID: uuid.New(), Role: "ADMIN"})
		return err
	}))

	require.NotNil(t, result.NewOrder)
	assert.True(t, result.PriceDifference.Equal(decimal.NewFromInt(50000)))

	newOrder := f.order(t, result.NewOrder.ID)
	assert.Equal(t, enums.OrderStatusConfirmed, newOrder.Status)
	assert.Equal(t, enums.PaymentMethodPendingPayment, newOrder.PaymentMethod)
	assert.True(t, newOrder.Amount.Equal(decimal.NewFromInt(450000)))
	require.NotNil(t, newOrder.ExchangeInfo)
	assert.Equal(t, f.original.ID, newOrder.ExchangeInfo.OriginalOrderID)
	assert.Equal(t, f.rr.ID, newOrder.ExchangeInfo.ReturnRequestID)

	original := f.order(t, f.original.ID)
	assert.Equal(t, enums.OrderStatusCanceled, original.Status)
	assert.Equal(t, "Exchanged to new order #"+newOrder.ID.String(), *original.CancelReason)
	assert.Equal(t, f.rr.ID, *original.CanceledByReturnRequestID)

	variantStock, aggregate := f.stock(t)
	assert.Equal(t, 2, variantStock)
	assert.Equal(t, 4, aggregate)

	var stored models.ReturnRequest
	require.NoError(t, f.db.First(&stored, "id = ?", f.rr.ID).Error)
	require.NotNil(t, stored.ExchangeOrderID)
	assert.Equal(t, newOrder.ID, *stored.ExchangeOrderID)
	assert.True(t, stored.AdditionalCost.Equal(decimal.NewFromInt(50000)))

	var events []models.OutboxEvent
	require.NoError(t, f.db.Where("event_type = ?", enums.EventExchangeOrderCreated).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, newOrder.ID, events[0].AggregateID)
}

func TestReverseRunsCompensations(t *testing.T) {
	f := newExchangeFixture(t, 350000)
	ctx := context.Background()

	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.orch.Approve(ctx, tx, f.rr, nil)
		return err
	}))
	newOrderID := *f.rr.ExchangeOrderID
	assert.Equal(t, enums.PaymentMethodExchange, f.order(t, newOrderID).PaymentMethod)

	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.orch.Reverse(ctx, tx, f.rr)
	}))

	original := f.order(t, f.original.ID)
	assert.Equal(t, enums.OrderStatusCompleted, original.Status)
	assert.Nil(t, original.CancelReason)
	assert.Nil(t, original.CanceledByReturnRequestID)

	exchangeOrder := f.order(t, newOrderID)
	assert.Equal(t, enums.OrderStatusCanceled, exchangeOrder.Status)
	assert.Equal(t, "Exchange request rejected", *exchangeOrder.CancelReason)

	variantStock, aggregate := f.stock(t)
	assert.Equal(t, 3, variantStock)
	assert.Equal(t, 5, aggregate)
}

func TestApproveWithoutPriceFailsAndRollsBack(t *testing.T) {
	f := newExchangeFixture(t, 450000)
	require.NoError(t, f.db.Model(&models.ProductVariant{}).
		Where("id = ?", f.variants[0].ID).
		Update("price", nil).Error)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.orch.Approve(context.Background(), tx, f.rr, nil)
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidPrice))

	assert.Equal(t, enums.OrderStatusCompleted, f.order(t, f.original.ID).Status)
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	variantStock, aggregate := f.stock(t)
	assert.Equal(t, 3, variantStock)
	assert.Equal(t, 5, aggregate)
}

func TestCompleteRestocksReturnedItems(t *testing.T) {
	f := newExchangeFixture(t, 400000)
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.orch.Complete(context.Background(), tx, f.rr)
	}))
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", f.returned.ID).Error)
	assert.Equal(t, 3, p.InStock)
}

func TestValidateExchange(t *testing.T) {
	f := newExchangeFixture(t, 400000)
	rr := *f.rr
	rr.Type = enums.ReturnRequestTypeReturn
	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.orch.Approve(context.Background(), tx, &rr, nil)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rr = *f.rr
	rr.ExchangeToProductID = nil
	assert.True(t, pkgerrors.IsCode(f.orch.Complete(context.Background(), f.db, &rr), pkgerrors.CodeValidation))
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	_, err := NewOrchestrator(Params{})
	assert.Error(t, err)
}
