package enums

// ShippingZone classifies the distance between shop and customer.
type ShippingZone string

const (
	ShippingZoneSameDistrict ShippingZone = "SAME_DISTRICT"
	ShippingZoneSameProvince ShippingZone = "SAME_PROVINCE"
	ShippingZoneSameRegion   ShippingZone = "SAME_REGION"
	ShippingZoneCrossRegion  ShippingZone = "CROSS_REGION"
)

func (z ShippingZone) String() string {
	return string(z)
}

// Region is one of the three delivery regions of Vietnam.
type Region string

const (
	RegionNorth   Region = "NORTH"
	RegionCentral Region = "CENTRAL"
	RegionSouth   Region = "SOUTH"
)
