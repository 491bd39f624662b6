// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Category
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a category is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - Deleting when no rows exist is not an error; the affected row count
//     is returned so callers can decide.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// insertBatchSize bounds the number of rows per INSERT statement.
const insertBatchSize = 100

// ListCategories returns every category ordered by defindex.
func ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var out []domain.Category
	err := db.WithContext(ctx).
		Order("defindex ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetCategoryByDefindex fetches the category of defindex, or ErrNotFound.
func GetCategoryByDefindex(ctx context.Context, db *gorm.DB, defindex int) (*domain.Category, error) {
	var c domain.Category
	err := db.WithContext(ctx).
		Where("defindex = ?", defindex).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategories bulk-inserts cats, assigning surrogate IDs to rows that
// have none. The slice is modified in place.
func CreateCategories(ctx context.Context, db *gorm.DB, cats []domain.Category) error {
	if len(cats) == 0 {
		return nil
	}
	for i := range cats {
		if cats[i].ID == "" {
			cats[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(cats, insertBatchSize).Error
}

// DeleteCategories removes every category and returns the affected rows.
func DeleteCategories(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Where("1 = 1").
		Delete(&domain.Category{})
	return res.RowsAffected, res.Error
}

// ReplaceCategories deletes every category and inserts cats in one
// transaction. It returns the number of rows deleted.
func ReplaceCategories(ctx context.Context, db *gorm.DB, cats []domain.Category) (int64, error) {
	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := DeleteCategories(ctx, tx)
		if err != nil {
			return err
		}
		deleted = n
		return CreateCategories(ctx, tx, cats)
	})
	return deleted, err
}
