package models

import (
	"time"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

// ReturnPolicy overrides the built-in policy for one reason.
type ReturnPolicy struct {
	Reason                enums.ReturnReason `gorm:"column:reason;type:text;primaryKey"`
	CustomerPaysShipping  bool               `gorm:"column:customer_pays_shipping;not null"`
	ShippingFeePercentage int                `gorm:"column:shipping_fee_percentage;not null"`
	RestoreInventory      bool               `gorm:"column:restore_inventory;not null"`
	RefundPercentage      int                `gorm:"column:refund_percentage;not null"`
	RequiresApproval      bool               `gorm:"column:requires_approval;not null"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
