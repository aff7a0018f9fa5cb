package types

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// Address is the delivery address stored on an order as JSONB.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postalCode,omitempty"`
}

// Province returns the province (tinh/thanh pho) the address belongs to.
func (a *Address) Province() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.City)
}

// District extracts the district from line1, which is stored as
// "<street>, <district>, ...".
func (a *Address) District() string {
	if a == nil {
		return ""
	}
	parts := strings.Split(a.Line1, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Value serializes the address to JSON.
func (a *Address) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan decodes JSONB into the address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}
