package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnItem is one line of a return or exchange request.
type ReturnItem struct {
	ProductID   uuid.UUID       `json:"productId"`
	VariantID   *uuid.UUID      `json:"variantId,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// LineTotal is unitPrice x quantity.
func (i ReturnItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ReturnItems is a slice marshaled as JSONB.
type ReturnItems []ReturnItem

// Total sums the line totals of every item.
func (r ReturnItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Value serializes the items to JSON.
func (r ReturnItems) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan decodes JSONB into the item slice.
func (r *ReturnItems) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded ReturnItems
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*r = decoded
	return nil
}
