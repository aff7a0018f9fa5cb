package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

// ReturnRequestSubmittedEvent is emitted when a customer files a return or exchange.
type ReturnRequestSubmittedEvent struct {
	ReturnRequestID uuid.UUID                 `json:"return_request_id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	UserID          uuid.UUID                 `json:"user_id"`
	Type            enums.ReturnRequestType   `json:"type"`
	Reason          enums.ReturnReason        `json:"reason"`
	RefundAmount    decimal.Decimal           `json:"refund_amount"`
	Status          enums.ReturnRequestStatus `json:"status"`
}

// ReturnRequestTransitionedEvent records one admin decision on a request.
type ReturnRequestTransitionedEvent struct {
	ReturnRequestID uuid.UUID                 `json:"return_request_id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	UserID          uuid.UUID                 `json:"user_id"`
	Type            enums.ReturnRequestType   `json:"type"`
	Action          enums.ReturnAction        `json:"action"`
	FromStatus      enums.ReturnRequestStatus `json:"from_status"`
	ToStatus        enums.ReturnRequestStatus `json:"to_status"`
	AdminID         *uuid.UUID                `json:"admin_id,omitempty"`
	RefundAmount    decimal.Decimal           `json:"refund_amount"`
	Notes           *string                   `json:"notes,omitempty"`
	NewOrderID      *uuid.UUID                `json:"new_order_id,omitempty"`
	OrderCanceled   bool                      `json:"order_canceled"`
}

// ReturnRequestPendingNudgeEvent flags a request that has waited too long for review.
type ReturnRequestPendingNudgeEvent struct {
	ReturnRequestID uuid.UUID               `json:"return_request_id"`
	OrderID         uuid.UUID               `json:"order_id"`
	UserID          uuid.UUID               `json:"user_id"`
	Type            enums.ReturnRequestType `json:"type"`
	SubmittedAt     time.Time               `json:"submitted_at"`
	PendingHours    int                     `json:"pending_hours"`
}

// ExchangeOrderCreatedEvent links an approved exchange to its replacement order.
type ExchangeOrderCreatedEvent struct {
	ReturnRequestID uuid.UUID           `json:"return_request_id"`
	OriginalOrderID uuid.UUID           `json:"original_order_id"`
	NewOrderID      uuid.UUID           `json:"new_order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	PriceDifference decimal.Decimal     `json:"price_difference"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
}

// ExchangePaymentSelectedEvent is emitted once the customer settles how to pay the top-up.
type ExchangePaymentSelectedEvent struct {
	ReturnRequestID uuid.UUID           `json:"return_request_id"`
	NewOrderID      uuid.UUID           `json:"new_order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	OrderStatus     enums.OrderStatus   `json:"order_status"`
}
