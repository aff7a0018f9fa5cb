package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// User inserts a user with the given role.
func User(t testing.TB, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:  "User " + string(role),
		Email: uuid.NewString() + "@example.com",
		Role:  role,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SimpleProduct inserts a SIMPLE product.
func SimpleProduct(t testing.TB, conn *gorm.DB, price int64, inStock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        "Simple " + uuid.NewString()[:8],
		ProductType: enums.ProductTypeSimple,
		Price:       decimal.NewNullDecimal(decimal.NewFromInt(price)),
		InStock:     inStock,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// VariantProduct inserts a VARIANT product with one active variant per
// entry in stocks and keeps in_stock equal to their sum.
func VariantProduct(t testing.TB, conn *gorm.DB, price int64, stocks ...int) (*models.Product, []models.ProductVariant) {
	t.Helper()
	product := &models.Product{
		Name:        "Variant " + uuid.NewString()[:8],
		ProductType: enums.ProductTypeVariant,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variants := make([]models.ProductVariant, 0, len(stocks))
	total := 0
	for i, stock := range stocks {
		variants = append(variants, models.ProductVariant{
			ProductID: product.ID,
			SKU:       product.Name + "-" + string(rune('A'+i)),
			Price:     decimal.NewNullDecimal(decimal.NewFromInt(price)),
			Stock:     stock,
			IsActive:  true,
		})
		total += stock
	}
	if len(variants) > 0 {
		if err := conn.Create(&variants).Error; err != nil {
			t.Fatalf("seed variants: %v", err)
		}
	}
	if err := conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("in_stock", total).Error; err != nil {
		t.Fatalf("seed aggregate: %v", err)
	}
	product.InStock = total
	return product, variants
}

// Order inserts a completed, delivered order for userID.
func Order(t testing.TB, conn *gorm.DB, userID uuid.UUID, amount int64, lines types.OrderLines, deliveredAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:          userID,
		Amount:          decimal.NewFromInt(amount),
		ShippingFee:     decimal.NewFromInt(30000),
		Currency:        enums.CurrencyVND,
		Status:          enums.OrderStatusCompleted,
		DeliveryStatus:  enums.DeliveryStatusDelivered,
		PaymentMethod:   enums.PaymentMethodCOD,
		PaymentIntentID: "pi_" + uuid.NewString(),
		Address:         &types.Address{Line1: "1 Lê Lợi, Quận 1", City: "TP. Hồ Chí Minh", Country: "VN"},
		Phone:           "0900000000",
		Products:        lines,
		ReturnStatus:    enums.OrderReturnStatusNone,
		DeliveredAt:     &deliveredAt,
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}
