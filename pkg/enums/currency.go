package enums

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the ISO code stored on orders.
type Currency string

const (
	CurrencyVND Currency = "VND"
	CurrencyUSD Currency = "USD"
)

// minor units per ISO 4217; VND has no subunit in circulation.
var currencyExponent = map[Currency]int32{
	CurrencyVND: 0,
	CurrencyUSD: 2,
}

var amountPrinter = message.NewPrinter(language.English)

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	_, ok := currencyExponent[c]
	return ok
}

// Exponent is the number of decimal places amounts are displayed with.
func (c Currency) Exponent() int32 {
	if exp, ok := currencyExponent[c]; ok {
		return exp
	}
	return 2
}

// Format renders an amount with digit grouping, e.g. "782,000 VND".
func (c Currency) Format(amount decimal.Decimal) string {
	exp := c.Exponent()
	rounded := amount.Round(exp)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	whole := amountPrinter.Sprintf("%d", rounded.IntPart())
	if exp > 0 {
		fixed := rounded.StringFixed(exp)
		whole += fixed[strings.IndexByte(fixed, '.'):]
	}
	return fmt.Sprintf("%s%s %s", sign, whole, c)
}

// ParseCurrency accepts ISO codes in any case.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
