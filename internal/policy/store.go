package policy

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/returns-engine/internal/repo"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

// Store loads admin overrides from return_policies and merges them onto the defaults.
type Store struct {
	repo.Base
}

func NewStore(db *gorm.DB) *Store {
	return &Store{Base: repo.NewBase(db)}
}

// Table returns the effective policy table.
func (s *Store) Table(ctx context.Context) (Table, error) {
	var rows []models.ReturnPolicy
	if err := s.DB(ctx).Order("reason ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return policies")
	}
	return Defaults().WithOverrides(rows), nil
}

// Upsert stores an override for one reason.
func (s *Store) Upsert(ctx context.Context, reason enums.ReturnReason, p Policy) error {
	if !reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown return reason %q", reason))
	}
	if err := p.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return policy")
	}
	row := p.ToModel(reason)
	err := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reason"}},
		DoUpdates: clause.AssignmentColumns([]string{"customer_pays_shipping", "shipping_fee_percentage", "restore_inventory", "refund_percentage", "requires_approval", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save return policy")
	}
	return nil
}

// SeedDefaults inserts the built-in table without touching existing overrides.
func (s *Store) SeedDefaults(ctx context.Context) (int64, error) {
	defaults := Defaults()
	rows := make([]models.ReturnPolicy, 0, len(defaults))
	for _, reason := range enums.ReturnReasons() {
		if p, ok := defaults[reason]; ok {
			rows = append(rows, p.ToModel(reason))
		}
	}
	res := s.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "seed return policies")
	}
	return res.RowsAffected, nil
}
