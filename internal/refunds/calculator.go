// Package refunds computes the money side of a return: refund amount, the
// split of return shipping between shop and customer, and processing fees.
package refunds

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/internal/policy"
	"github.com/angelmondragon/returns-engine/internal/shipping"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// FeeLookup is the zone based shipping fee collaborator.
type FeeLookup interface {
	Fee(shop, customer shipping.Location, orderValue decimal.Decimal) shipping.Quote
	ShopLocation() shipping.Location
	BaseFee() decimal.Decimal
}

// Input groups what a refund quote depends on.
type Input struct {
	Items  types.ReturnItems
	Order  *models.Order
	Reason enums.ReturnReason
	Policy policy.Policy
}

// Calculate prices a return. It is a pure function of its inputs and the fee lookup.
func Calculate(in Input, fees FeeLookup) types.RefundBreakdown {
	p := in.Policy
	refundPct := decimal.NewFromInt(int64(p.RefundPercentage))

	itemsTotal := in.Items.Total()
	refundAmount := itemsTotal.Mul(refundPct).Div(hundred)

	returnFee, zone := returnShippingFee(in.Order, fees)
	customerFee := decimal.Zero
	if p.CustomerPaysShipping {
		customerFee = returnFee.Mul(decimal.NewFromInt(int64(p.ShippingFeePercentage))).Div(hundred)
	}
	shopFee := returnFee.Sub(customerFee)

	processingFee := decimal.Zero
	if p.RefundPercentage < 100 {
		processingFee = itemsTotal.Mul(hundred.Sub(refundPct)).Div(hundred)
	}

	totalRefund := refundAmount.Sub(customerFee).Sub(processingFee)

	originalShipping := decimal.Zero
	if in.Order != nil {
		originalShipping = in.Order.ShippingFee
	}

	return types.RefundBreakdown{
		Reason:              in.Reason,
		ItemsTotal:          round(itemsTotal),
		RefundPercentage:    p.RefundPercentage,
		RefundAmount:        round(refundAmount),
		ReturnShippingFee:   round(returnFee),
		CustomerShippingFee: round(customerFee),
		ShopShippingFee:     round(shopFee),
		ProcessingFee:       round(processingFee),
		TotalRefund:         round(totalRefund),
		OriginalShippingFee: round(originalShipping),
		ShippingZone:        zone,
		RestoreInventory:    p.RestoreInventory,
		RequiresApproval:    p.RequiresApproval,
	}
}

// returnShippingFee quotes the trip back to the shop. Return shipping is never
// free, so the lookup always runs with a zero order value.
func returnShippingFee(order *models.Order, fees FeeLookup) (decimal.Decimal, enums.ShippingZone) {
	if order == nil || order.Address == nil || order.Address.City == "" {
		return fees.BaseFee(), enums.ShippingZoneSameDistrict
	}
	customer := shipping.Location{
		Province: order.Address.Province(),
		District: order.Address.District(),
	}
	quote := fees.Fee(fees.ShopLocation(), customer, decimal.Zero)
	if !quote.Amount.IsPositive() {
		return fees.BaseFee(), quote.Zone
	}
	return quote.Amount, quote.Zone
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}
