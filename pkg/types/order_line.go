package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is a purchased product captured on the order.
type OrderLine struct {
	ProductID uuid.UUID       `json:"id"`
	VariantID *uuid.UUID      `json:"variantId,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Matches reports whether the line refers to the given product and variant.
func (l OrderLine) Matches(productID uuid.UUID, variantID *uuid.UUID) bool {
	if l.ProductID != productID {
		return false
	}
	if l.VariantID == nil || variantID == nil {
		return l.VariantID == nil && variantID == nil
	}
	return *l.VariantID == *variantID
}

// OrderLines is a slice marshaled as JSONB.
type OrderLines []OrderLine

// Find returns the line matching the product and variant.
func (o OrderLines) Find(productID uuid.UUID, variantID *uuid.UUID) (OrderLine, bool) {
	for _, line := range o {
		if line.Matches(productID, variantID) {
			return line, true
		}
	}
	return OrderLine{}, false
}

// Value serializes the lines to JSON.
func (o OrderLines) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Scan decodes JSONB into the line slice.
func (o *OrderLines) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded OrderLines
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*o = decoded
	return nil
}
