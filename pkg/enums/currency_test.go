package enums

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyFormat(t *testing.T) {
	cases := []struct {
		currency Currency
		amount   string
		want     string
	}{
		{CurrencyVND, "782000", "782,000 VND"},
		{CurrencyVND, "1999.6", "2,000 VND"},
		{CurrencyVND, "0", "0 VND"},
		{CurrencyUSD, "1234.5", "1,234.50 USD"},
		{CurrencyUSD, "-12.345", "-12.35 USD"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.currency.Format(decimal.RequireFromString(tc.amount)), tc.amount)
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, CurrencyUSD, c)
	assert.Equal(t, int32(2), c.Exponent())
	assert.Equal(t, int32(0), CurrencyVND.Exponent())

	_, err = ParseCurrency("EUR")
	assert.Error(t, err)
}

func TestParseNotificationType(t *testing.T) {
	n, err := ParseNotificationType("STAFF_QUEUE")
	require.NoError(t, err)
	assert.True(t, n.ForStaff())
	assert.False(t, NotificationTypeReturnUpdate.ForStaff())

	_, err = ParseNotificationType("promo")
	assert.Error(t, err)
}
