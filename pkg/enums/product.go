package enums

import "fmt"

// ProductType separates single-SKU products from products with variants.
type ProductType string

const (
	ProductTypeSimple  ProductType = "SIMPLE"
	ProductTypeVariant ProductType = "VARIANT"
)

var validProductTypes = []ProductType{
	ProductTypeSimple,
	ProductTypeVariant,
}

func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
