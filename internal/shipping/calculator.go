package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/enums"
)

const (
	defaultShopProvince = "TP. Hồ Chí Minh"
	defaultShopDistrict = "Quận 1"
)

var (
	defaultFees = map[enums.ShippingZone]decimal.Decimal{
		enums.ShippingZoneSameDistrict: decimal.NewFromInt(18000),
		enums.ShippingZoneSameProvince: decimal.NewFromInt(22000),
		enums.ShippingZoneSameRegion:   decimal.NewFromInt(28000),
		enums.ShippingZoneCrossRegion:  decimal.NewFromInt(38000),
	}
	defaultFreeThreshold = decimal.NewFromInt(5000000)
)

// Location is a province plus district pair as written on an address.
type Location struct {
	Province string `json:"province"`
	District string `json:"district"`
}

// Quote is the zone based fee for one shipment.
type Quote struct {
	Amount        decimal.Decimal    `json:"amount"`
	ZoneFee       decimal.Decimal    `json:"zoneFee"`
	IsFree        bool               `json:"isFree"`
	Zone          enums.ShippingZone `json:"zone"`
	EstimatedDays int                `json:"estimatedDays"`
	Description   string             `json:"description"`
}

// Calculator prices shipments with the four zone tiers.
type Calculator struct {
	shop          Location
	fees          map[enums.ShippingZone]decimal.Decimal
	freeThreshold decimal.Decimal
}

// NewCalculator builds a calculator from config. Zero fees fall back to the
// market defaults.
func NewCalculator(cfg config.ShippingConfig) *Calculator {
	shop := Location{Province: cfg.ShopProvince, District: cfg.ShopDistrict}
	if shop.Province == "" {
		shop.Province = defaultShopProvince
	}
	if shop.District == "" {
		shop.District = defaultShopDistrict
	}
	fees := map[enums.ShippingZone]decimal.Decimal{
		enums.ShippingZoneSameDistrict: cfg.SameDistrictFee,
		enums.ShippingZoneSameProvince: cfg.SameProvinceFee,
		enums.ShippingZoneSameRegion:   cfg.SameRegionFee,
		enums.ShippingZoneCrossRegion:  cfg.CrossRegionFee,
	}
	for zone, fee := range fees {
		if !fee.IsPositive() {
			fees[zone] = defaultFees[zone]
		}
	}
	threshold := cfg.FreeShippingAmount
	if !threshold.IsPositive() {
		threshold = defaultFreeThreshold
	}
	return &Calculator{shop: shop, fees: fees, freeThreshold: threshold}
}

// ShopLocation returns the configured origin of shipments.
func (c *Calculator) ShopLocation() Location {
	return c.shop
}

// BaseFee is the same-district fee, used when an address cannot be zoned.
func (c *Calculator) BaseFee() decimal.Decimal {
	return c.fees[enums.ShippingZoneSameDistrict]
}

// Fee quotes a shipment between shop and customer. Orders at or above the
// free-shipping threshold ship for free.
func (c *Calculator) Fee(shop, customer Location, orderValue decimal.Decimal) Quote {
	zone := ZoneBetween(shop, customer)
	zoneFee := c.fees[zone]
	quote := Quote{
		Amount:        zoneFee,
		ZoneFee:       zoneFee,
		Zone:          zone,
		EstimatedDays: estimatedDays(zone),
		Description:   description(zone),
	}
	if orderValue.GreaterThanOrEqual(c.freeThreshold) {
		quote.Amount = decimal.Zero
		quote.IsFree = true
	}
	return quote
}

// ZoneBetween classifies two locations into a shipping zone.
func ZoneBetween(shop, customer Location) enums.ShippingZone {
	sameProvince := Normalize(shop.Province) == Normalize(customer.Province)
	if sameProvince && Normalize(shop.District) == Normalize(customer.District) {
		return enums.ShippingZoneSameDistrict
	}
	if sameProvince {
		return enums.ShippingZoneSameProvince
	}
	if RegionOf(shop.Province) == RegionOf(customer.Province) {
		return enums.ShippingZoneSameRegion
	}
	return enums.ShippingZoneCrossRegion
}

func estimatedDays(zone enums.ShippingZone) int {
	switch zone {
	case enums.ShippingZoneSameDistrict:
		return 1
	case enums.ShippingZoneSameProvince:
		return 2
	case enums.ShippingZoneSameRegion:
		return 3
	case enums.ShippingZoneCrossRegion:
		return 4
	default:
		return 3
	}
}

func description(zone enums.ShippingZone) string {
	switch zone {
	case enums.ShippingZoneSameDistrict:
		return "Giao hàng nội thành (1 ngày)"
	case enums.ShippingZoneSameProvince:
		return "Giao hàng nội tỉnh (2 ngày)"
	case enums.ShippingZoneSameRegion:
		return "Giao hàng nội miền (3 ngày)"
	case enums.ShippingZoneCrossRegion:
		return "Giao hàng liên miền (4 ngày)"
	default:
		return "Giao hàng tiêu chuẩn"
	}
}
