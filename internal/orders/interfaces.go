package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
)

// Repository defines persistence operations for storefront orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
