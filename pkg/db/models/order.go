package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// Order is a storefront order. Return tracking columns are maintained by the
// return lifecycle; CanceledByReturnRequestID identifies the request whose
// approval canceled the order, and only that request may restore it.
type Order struct {
	ID                        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID                    uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Amount                    decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	ShippingFee               decimal.Decimal         `gorm:"column:shipping_fee;type:numeric(14,2);not null;default:0"`
	Currency                  enums.Currency          `gorm:"column:currency;type:text;not null;default:'VND'"`
	Status                    enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'pending'"`
	DeliveryStatus            enums.DeliveryStatus    `gorm:"column:delivery_status;type:text;not null;default:'not_shipped'"`
	PaymentMethod             enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	PaymentIntentID           string                  `gorm:"column:payment_intent_id;type:text;not null;uniqueIndex"`
	Address                   *types.Address          `gorm:"column:address;type:jsonb"`
	Phone                     string                  `gorm:"column:phone;type:text;not null;default:''"`
	Products                  types.OrderLines        `gorm:"column:products;type:jsonb;not null"`
	CancelReason              *string                 `gorm:"column:cancel_reason;type:text"`
	CancelDate                *time.Time              `gorm:"column:cancel_date"`
	CanceledByReturnRequestID *uuid.UUID              `gorm:"column:canceled_by_return_request_id;type:uuid;index"`
	ReturnStatus              enums.OrderReturnStatus `gorm:"column:return_status;type:text;not null;default:'NONE'"`
	ReturnedAmount            decimal.Decimal         `gorm:"column:returned_amount;type:numeric(14,2);not null;default:0"`
	ExchangeInfo              *types.ExchangeInfo     `gorm:"column:exchange_info;type:jsonb"`
	SalesStaff                *string                 `gorm:"column:sales_staff;type:text"`
	DeliveredAt               *time.Time              `gorm:"column:delivered_at"`
	CreatedAt                 time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// IsCanceledBy reports whether the order was canceled by the given request.
func (o *Order) IsCanceledBy(returnRequestID uuid.UUID) bool {
	return o.Status == enums.OrderStatusCanceled &&
		o.CanceledByReturnRequestID != nil &&
		*o.CanceledByReturnRequestID == returnRequestID
}
