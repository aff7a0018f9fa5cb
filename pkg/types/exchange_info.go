package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeTypeApproved marks orders created by an approved exchange.
const ExchangeTypeApproved = "APPROVED_EXCHANGE"

// ExchangeInfo cross-references an exchange order with its origin.
type ExchangeInfo struct {
	OriginalOrderID uuid.UUID       `json:"originalOrderId"`
	ReturnRequestID uuid.UUID       `json:"returnRequestId"`
	PriceDifference decimal.Decimal `json:"priceDifference"`
	ExchangeType    string          `json:"exchangeType"`
}

// Value serializes the exchange info to JSON.
func (e *ExchangeInfo) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Scan decodes JSONB into the exchange info.
func (e *ExchangeInfo) Scan(value interface{}) error {
	if value == nil {
		*e = ExchangeInfo{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, e)
}
