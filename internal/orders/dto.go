package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// Summary is the order view embedded in return request responses.
type Summary struct {
	ID             uuid.UUID               `json:"id"`
	Amount         decimal.Decimal         `json:"amount"`
	ShippingFee    decimal.Decimal         `json:"shippingFee"`
	Status         enums.OrderStatus       `json:"status"`
	DeliveryStatus enums.DeliveryStatus    `json:"deliveryStatus"`
	PaymentMethod  enums.PaymentMethod     `json:"paymentMethod"`
	ReturnStatus   enums.OrderReturnStatus `json:"returnStatus"`
	ReturnedAmount decimal.Decimal         `json:"returnedAmount"`
	CancelReason   *string                 `json:"cancelReason,omitempty"`
	ExchangeInfo   *types.ExchangeInfo     `json:"exchangeInfo,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
}

// SummaryFrom maps a persisted order onto its summary.
func SummaryFrom(o *models.Order) *Summary {
	if o == nil {
		return nil
	}
	return &Summary{
		ID:             o.ID,
		Amount:         o.Amount,
		ShippingFee:    o.ShippingFee,
		Status:         o.Status,
		DeliveryStatus: o.DeliveryStatus,
		PaymentMethod:  o.PaymentMethod,
		ReturnStatus:   o.ReturnStatus,
		ReturnedAmount: o.ReturnedAmount,
		CancelReason:   o.CancelReason,
		ExchangeInfo:   o.ExchangeInfo,
		CreatedAt:      o.CreatedAt,
	}
}

// ExchangeOrderInput describes the replacement order created by an exchange.
type ExchangeOrderInput struct {
	ReturnRequestID uuid.UUID
	Original        *models.Order
	ProductID       uuid.UUID
	VariantID       *uuid.UUID
	ProductName     string
	Price           decimal.Decimal
	PriceDifference decimal.Decimal
	CreatedAt       time.Time
}
