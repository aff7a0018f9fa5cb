package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

// RefundBreakdown is the calculator output persisted on a return request.
type RefundBreakdown struct {
	Reason              enums.ReturnReason `json:"reason"`
	ItemsTotal          decimal.Decimal    `json:"itemsTotal"`
	RefundPercentage    int                `json:"refundPercentage"`
	RefundAmount        decimal.Decimal    `json:"refundAmount"`
	ReturnShippingFee   decimal.Decimal    `json:"returnShippingFee"`
	CustomerShippingFee decimal.Decimal    `json:"customerShippingFee"`
	ShopShippingFee     decimal.Decimal    `json:"shopShippingFee"`
	ProcessingFee       decimal.Decimal    `json:"processingFee"`
	TotalRefund         decimal.Decimal    `json:"totalRefund"`
	OriginalShippingFee decimal.Decimal    `json:"originalShippingFee"`
	ShippingZone        enums.ShippingZone `json:"shippingZone"`
	RestoreInventory    bool               `json:"restoreInventory"`
	RequiresApproval    bool               `json:"requiresApproval"`
}

// Value serializes the breakdown to JSON.
func (b *RefundBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

// Scan decodes JSONB into the breakdown.
func (b *RefundBreakdown) Scan(value interface{}) error {
	if value == nil {
		*b = RefundBreakdown{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, b)
}

// StringList stores a list of strings (image URLs) as JSONB.
type StringList []string

// Value serializes the list to JSON.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan decodes JSONB into the list.
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded StringList
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*s = decoded
	return nil
}
