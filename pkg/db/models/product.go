package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

// Product is a catalog entry. For VARIANT products InStock is a cache of the
// summed stock of active variants and must only be written by a recompute.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name        string              `gorm:"column:name;type:text;not null"`
	ProductType enums.ProductType   `gorm:"column:product_type;type:text;not null;default:'SIMPLE'"`
	Price       decimal.NullDecimal `gorm:"column:price;type:numeric(14,2)"`
	InStock     int                 `gorm:"column:in_stock;not null;default:0"`
	Variants    []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// HasVariants reports whether stock is tracked per variant.
func (p *Product) HasVariants() bool {
	return p.ProductType == enums.ProductTypeVariant
}

// ProductVariant is a sellable SKU of a VARIANT product.
type ProductVariant struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	SKU       string              `gorm:"column:sku;type:text;not null"`
	Price     decimal.NullDecimal `gorm:"column:price;type:numeric(14,2)"`
	Stock     int                 `gorm:"column:stock;not null;default:0"`
	IsActive  bool                `gorm:"column:is_active;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
