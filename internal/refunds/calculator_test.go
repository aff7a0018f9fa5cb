package refunds

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/internal/policy"
	"github.com/angelmondragon/returns-engine/internal/shipping"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCalculateChangeMindScenario(t *testing.T) {
	calc := shipping.NewCalculator(config.ShippingConfig{})
	order := &models.Order{ID: uuid.New(), Amount: dec(1000000), ShippingFee: dec(30000)}
	items := types.ReturnItems{{ProductID: uuid.New(), Quantity: 1, UnitPrice: dec(1000000)}}

	got := Calculate(Input{
		Items:  items,
		Order:  order,
		Reason: enums.ReturnReasonChangeMind,
		Policy: policy.Defaults().For(enums.ReturnReasonChangeMind),
	}, calc)

	if !got.RefundAmount.Equal(dec(900000)) {
		t.Fatalf("expected refund 900000, got %s", got.RefundAmount)
	}
	if !got.ProcessingFee.Equal(dec(100000)) {
		t.Fatalf("expected processing fee 100000, got %s", got.ProcessingFee)
	}
	if !got.ReturnShippingFee.Equal(dec(18000)) || !got.CustomerShippingFee.Equal(dec(18000)) {
		t.Fatalf("address-less order should use the same-district fee, got %+v", got)
	}
	if !got.ShopShippingFee.IsZero() {
		t.Fatalf("customer pays the full fee, shop share should be zero, got %s", got.ShopShippingFee)
	}
	if !got.TotalRefund.Equal(dec(782000)) {
		t.Fatalf("expected total 782000, got %s", got.TotalRefund)
	}
	if !got.OriginalShippingFee.Equal(dec(30000)) {
		t.Fatalf("unexpected original shipping %s", got.OriginalShippingFee)
	}
	if !got.RequiresApproval || !got.RestoreInventory {
		t.Fatalf("policy flags not carried: %+v", got)
	}
}

func TestCalculateDefectiveShopPaysShipping(t *testing.T) {
	calc := shipping.NewCalculator(config.ShippingConfig{})
	order := &models.Order{
		Amount:  dec(500000),
		Address: &types.Address{Line1: "12 Kim Mã, Ba Đình, Hà Nội", City: "Hà Nội"},
	}
	items := types.ReturnItems{{ProductID: uuid.New(), Quantity: 2, UnitPrice: dec(125000)}}

	got := Calculate(Input{
		Items:  items,
		Order:  order,
		Reason: enums.ReturnReasonDefective,
		Policy: policy.Defaults().For(enums.ReturnReasonDefective),
	}, calc)

	if got.ShippingZone != enums.ShippingZoneCrossRegion {
		t.Fatalf("expected cross region zone, got %s", got.ShippingZone)
	}
	if !got.ShopShippingFee.Equal(dec(38000)) || !got.CustomerShippingFee.IsZero() {
		t.Fatalf("shop should bear the full fee: %+v", got)
	}
	if !got.ProcessingFee.IsZero() {
		t.Fatalf("no processing fee at 100%%, got %s", got.ProcessingFee)
	}
	if !got.TotalRefund.Equal(dec(250000)) {
		t.Fatalf("expected total 250000, got %s", got.TotalRefund)
	}
}

func TestCalculateRoundsToTwoPlaces(t *testing.T) {
	calc := shipping.NewCalculator(config.ShippingConfig{})
	items := types.ReturnItems{{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("333.335")}}

	got := Calculate(Input{
		Items:  items,
		Reason: enums.ReturnReasonWrongSize,
		Policy: policy.Policy{RefundPercentage: 100},
	}, calc)

	if got.RefundAmount.String() != "333.34" {
		t.Fatalf("expected half away from zero rounding, got %s", got.RefundAmount)
	}
}

type zeroFees struct{}

func (zeroFees) Fee(shop, customer shipping.Location, orderValue decimal.Decimal) shipping.Quote {
	return shipping.Quote{Zone: enums.ShippingZoneSameRegion}
}

func (zeroFees) ShopLocation() shipping.Location { return shipping.Location{} }

func (zeroFees) BaseFee() decimal.Decimal { return dec(18000) }

func TestCalculateFallsBackWhenLookupReturnsZero(t *testing.T) {
	order := &models.Order{Address: &types.Address{City: "Bình Dương"}}
	got := Calculate(Input{
		Items:  types.ReturnItems{{ProductID: uuid.New(), Quantity: 1, UnitPrice: dec(100)}},
		Order:  order,
		Policy: policy.Policy{RefundPercentage: 100},
	}, zeroFees{})
	if !got.ReturnShippingFee.Equal(dec(18000)) {
		t.Fatalf("expected base fee fallback, got %s", got.ReturnShippingFee)
	}
}
