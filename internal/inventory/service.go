package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

const recomputeAggregateSQL = `
UPDATE products
SET in_stock = (
	SELECT COALESCE(SUM(stock), 0)
	FROM product_variants
	WHERE product_variants.product_id = products.id
	  AND product_variants.is_active = ?
)
WHERE id = ?`

// Service reconciles product and variant stock inside the caller's transaction.
type Service struct {
	logg *logger.Logger
}

// NewService builds the inventory service. logg may be nil in tests.
func NewService(logg *logger.Logger) *Service {
	return &Service{logg: logg}
}

// Reserve records that items are earmarked by an approval. Stock is not
// held; the line is informational.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, items types.ReturnItems) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	for _, item := range items {
		s.audit(ctx, "inventory.reserve", item.ProductID, item.VariantID, item.Quantity, nil)
	}
	return nil
}

// Unreserve releases a reservation made by Reserve.
func (s *Service) Unreserve(ctx context.Context, tx *gorm.DB, items types.ReturnItems) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	for _, item := range items {
		s.audit(ctx, "inventory.unreserve", item.ProductID, item.VariantID, item.Quantity, nil)
	}
	return nil
}

// Restore puts returned units back on the shelf. Defective returns are
// logged and skipped.
func (s *Service) Restore(ctx context.Context, tx *gorm.DB, items types.ReturnItems, reason enums.RestockReason) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if reason.SkipsRestock() {
		if s.logg != nil {
			s.logg.Audit(ctx, "inventory.restore_skipped", map[string]any{
				"reason":     reason.String(),
				"item_count": len(items),
			})
		}
		return nil
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "restore quantity must be positive")
		}
		if err := s.Adjust(ctx, tx, item.ProductID, item.VariantID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Adjust moves stock by delta. Variant rows are changed directly and the
// product aggregate recomputed; simple products change in_stock.
func (s *Service) Adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, delta int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if delta == 0 {
		return nil
	}

	product, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return err
	}

	if variantID == nil {
		if product.HasVariants() {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant id required for variant product").
				WithDetails(map[string]any{"productId": productID})
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", productID).
			Update("in_stock", gorm.Expr("in_stock + ?", delta))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust product stock")
		}
		s.audit(ctx, "inventory.adjust", productID, nil, delta, map[string]any{
			"in_stock": product.InStock + delta,
		})
		s.warnIfNegative(ctx, productID, nil, product.InStock+delta)
		return nil
	}

	var variant models.ProductVariant
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND product_id = ?", *variantID, productID).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
				WithDetails(map[string]any{"productId": productID, "variantId": *variantID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product variant")
	}

	res := tx.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variant.ID).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust variant stock")
	}

	inStock, err := s.RecomputeAggregate(ctx, tx, productID)
	if err != nil {
		return err
	}
	s.audit(ctx, "inventory.adjust", productID, variantID, delta, map[string]any{
		"variant_stock": variant.Stock + delta,
		"in_stock":      inStock,
	})
	s.warnIfNegative(ctx, productID, variantID, variant.Stock+delta)
	return nil
}

// RecomputeAggregate rewrites products.in_stock from the active variants and
// returns the new value. The product row is locked first.
func (s *Service) RecomputeAggregate(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if _, err := lockProduct(ctx, tx, productID); err != nil {
		return 0, err
	}
	if err := tx.WithContext(ctx).Exec(recomputeAggregateSQL, true, productID).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute product stock")
	}

	var product models.Product
	if err := tx.WithContext(ctx).Select("in_stock").Where("id = ?", productID).First(&product).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product stock")
	}
	return product.InStock, nil
}

func lockProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

func (s *Service) audit(ctx context.Context, action string, productID uuid.UUID, variantID *uuid.UUID, qty int, extra map[string]any) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"product_id": productID.String(),
		"quantity":   qty,
	}
	if variantID != nil {
		fields["variant_id"] = variantID.String()
	}
	for k, v := range extra {
		fields[k] = v
	}
	s.logg.Audit(ctx, action, fields)
}

func (s *Service) warnIfNegative(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, stock int) {
	if s.logg == nil || stock >= 0 {
		return
	}
	fields := map[string]any{"product_id": productID.String(), "stock": stock}
	if variantID != nil {
		fields["variant_id"] = variantID.String()
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), "stock went negative")
}
