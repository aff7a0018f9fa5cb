package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// ReturnRequest is a customer's request to return or exchange items from a
// delivered order. Rows are never hard-deleted.
type ReturnRequest struct {
	ID                  uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	UserID              uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	Type                enums.ReturnRequestType   `gorm:"column:type;type:text;not null"`
	Reason              enums.ReturnReason        `gorm:"column:reason;type:text;not null"`
	Description         string                    `gorm:"column:description;type:text;not null;default:''"`
	Images              types.StringList          `gorm:"column:images;type:jsonb;not null"`
	Status              enums.ReturnRequestStatus `gorm:"column:status;type:text;not null;default:'PENDING';index"`
	Items               types.ReturnItems         `gorm:"column:items;type:jsonb;not null"`
	RefundAmount        decimal.Decimal           `gorm:"column:refund_amount;type:numeric(14,2);not null;default:0"`
	AdditionalCost      decimal.Decimal           `gorm:"column:additional_cost;type:numeric(14,2);not null;default:0"`
	Breakdown           *types.RefundBreakdown    `gorm:"column:shipping_breakdown;type:jsonb"`
	ExchangeToProductID *uuid.UUID                `gorm:"column:exchange_to_product_id;type:uuid"`
	ExchangeToVariantID *uuid.UUID                `gorm:"column:exchange_to_variant_id;type:uuid"`
	ExchangeOrderID     *uuid.UUID                `gorm:"column:exchange_order_id;type:uuid"`
	ApprovedBy          *uuid.UUID                `gorm:"column:approved_by;type:uuid"`
	ApprovedAt          *time.Time                `gorm:"column:approved_at"`
	AdminNotes          *string                   `gorm:"column:admin_notes;type:text"`
	CreatedAt           time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt           time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ReturnRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// IsExchange reports whether the request swaps items instead of refunding.
func (r *ReturnRequest) IsExchange() bool {
	return r.Type == enums.ReturnRequestTypeExchange
}
