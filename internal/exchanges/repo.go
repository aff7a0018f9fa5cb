package exchanges

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/repo"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

// PriceQuote is the catalog price of an exchange target.
type PriceQuote struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	ProductName string
	Price       decimal.Decimal
}

// Repository reads exchange targets and records the exchange order on the request.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTargetPrice(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*PriceQuote, error)
	SaveExchangeOrder(ctx context.Context, returnRequestID, orderID uuid.UUID, additionalCost decimal.Decimal) error
}

type repository struct {
	repo.Base
}

// NewRepository builds the exchanges repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.On(tx)}
}

// FindTargetPrice returns the variant price when a variant is named, the
// product price otherwise. A missing or negative price is an InvalidPrice error.
func (r *repository) FindTargetPrice(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*PriceQuote, error) {
	product, err := repo.MustFind[models.Product](
		r.DB(ctx).Where("id = ?", productID),
		"exchange product", map[string]any{"productId": productID},
	)
	if err != nil {
		return nil, err
	}

	price := product.Price
	if variantID != nil {
		variant, err := repo.MustFind[models.ProductVariant](
			r.DB(ctx).Where("id = ? AND product_id = ?", *variantID, productID),
			"exchange variant", map[string]any{"productId": productID, "variantId": *variantID},
		)
		if err != nil {
			return nil, err
		}
		price = variant.Price
	}

	if !price.Valid || price.Decimal.IsNegative() {
		details := map[string]any{"productId": productID}
		if variantID != nil {
			details["variantId"] = *variantID
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPrice, "exchange target has no valid price").WithDetails(details)
	}

	return &PriceQuote{
		ProductID:   productID,
		VariantID:   variantID,
		ProductName: product.Name,
		Price:       price.Decimal,
	}, nil
}

func (r *repository) SaveExchangeOrder(ctx context.Context, returnRequestID, orderID uuid.UUID, additionalCost decimal.Decimal) error {
	return r.DB(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ?", returnRequestID).
		Updates(map[string]any{
			"exchange_order_id": orderID,
			"additional_cost":   additionalCost,
		}).Error
}
