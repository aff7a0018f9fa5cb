package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/pagination"
)

// Repository exposes persistence helpers for return requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rr *models.ReturnRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindOpenByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error)
	List(ctx context.Context, params listParams) ([]models.ReturnRequest, *pagination.Cursor, error)
	CountGrouped(ctx context.Context, column string, window StatsWindow) (map[string]int64, error)
	SumRefunded(ctx context.Context, window StatsWindow) (decimal.Decimal, error)
	Recent(ctx context.Context, window StatsWindow, limit int) ([]models.ReturnRequest, error)
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.ReturnRequest, error)
	FindUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
}

type listParams struct {
	Filters ListFilters
	Limit   int
	Cursor  *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a return request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, rr *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(rr).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var rr models.ReturnRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rr).Error; err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var rr models.ReturnRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&rr).Error
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repositoryImpl) FindOpenByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error) {
	var rows []models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, []enums.ReturnRequestStatus{
			enums.ReturnRequestStatusPending,
			enums.ReturnRequestStatusApproved,
		}).
		Find(&rows).Error
	return rows, err
}

// List returns newest first. The cursor names the last row of the previous page.
func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.ReturnRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.ReturnRequest{})
	if f := params.Filters; f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f := params.Filters; f.OrderID != nil {
		query = query.Where("order_id = ?", *f.OrderID)
	}
	if f := params.Filters; f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f := params.Filters; f.Type != nil {
		query = query.Where("type = ?", *f.Type)
	}

	var rows []models.ReturnRequest
	if err := pagination.Keyset(query, params.Cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(rr models.ReturnRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rr.CreatedAt, ID: rr.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) CountGrouped(ctx context.Context, column string, window StatsWindow) (map[string]int64, error) {
	var rows []struct {
		Label string
		Total int64
	}
	err := windowed(r.db.WithContext(ctx).Model(&models.ReturnRequest{}), window).
		Select(column + " AS label, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Total
	}
	return out, nil
}

// SumRefunded totals refund_amount over completed RETURN requests.
func (r *repositoryImpl) SumRefunded(ctx context.Context, window StatsWindow) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := windowed(r.db.WithContext(ctx).Model(&models.ReturnRequest{}), window).
		Select("SUM(refund_amount) AS total").
		Where("status = ? AND type = ?", enums.ReturnRequestStatusCompleted, enums.ReturnRequestTypeReturn).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

func (r *repositoryImpl) Recent(ctx context.Context, window StatsWindow, limit int) ([]models.ReturnRequest, error) {
	var rows []models.ReturnRequest
	err := windowed(r.db.WithContext(ctx), window).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FindStalePending returns PENDING requests created before the cutoff, oldest first.
func (r *repositoryImpl) FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.ReturnRequest, error) {
	var rows []models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.ReturnRequestStatusPending, before).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	out := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func windowed(query *gorm.DB, window StatsWindow) *gorm.DB {
	if window.From != nil {
		query = query.Where("created_at >= ?", *window.From)
	}
	if window.To != nil {
		query = query.Where("created_at < ?", *window.To)
	}
	return query
}
