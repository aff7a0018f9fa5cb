package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

// Base is embedded by repositories that may run on a caller's transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

func (b Base) DB(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx)
}

// On rebinds the base to tx. A nil tx keeps the current handle.
func (b Base) On(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// FindOne takes a single row and reports absence as (nil, nil).
func FindOne[T any](query *gorm.DB) (*T, error) {
	var row T
	err := query.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MustFind is FindOne for rows the caller named explicitly: absence is a
// NotFound error carrying details, any other failure a Dependency error.
func MustFind[T any](query *gorm.DB, what string, details map[string]any) (*T, error) {
	row, err := FindOne[T](query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
	}
	if row == nil {
		notFound := pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
		if len(details) > 0 {
			notFound = notFound.WithDetails(details)
		}
		return nil, notFound
	}
	return row, nil
}
