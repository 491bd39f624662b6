// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Paint model.
//
// Paint rows are owned per defindex: a rescrape replaces every row of one
// defindex (ReplacePaints) inside a single transaction, so readers never
// observe an empty defindex between the delete and the insert.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/domain"
)

// ListPaintsByDefindex returns the paints of defindex ordered by paintindex.
// It returns an empty slice when none exist.
func ListPaintsByDefindex(ctx context.Context, db *gorm.DB, defindex int) ([]domain.Paint, error) {
	var out []domain.Paint
	err := db.WithContext(ctx).
		Where("defindex = ?", defindex).
		Order("paintindex ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetPaintByUUID fetches a paint by its upstream uuid, or ErrNotFound. When
// the uuid is stored under several defindexes the newest row wins.
func GetPaintByUUID(ctx context.Context, db *gorm.DB, id string) (*domain.Paint, error) {
	var p domain.Paint
	err := db.WithContext(ctx).
		Where("uuid = ?", id).
		Order("updated_at DESC").
		Take(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePaints bulk-inserts paints, assigning surrogate IDs to rows that
// have none. The slice is modified in place.
func CreatePaints(ctx context.Context, db *gorm.DB, paints []domain.Paint) error {
	if len(paints) == 0 {
		return nil
	}
	for i := range paints {
		if paints[i].ID == "" {
			paints[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(paints, insertBatchSize).Error
}

// DeletePaintsByDefindex removes every paint of defindex and returns the
// affected rows. Zero rows is not an error.
func DeletePaintsByDefindex(ctx context.Context, db *gorm.DB, defindex int) (int64, error) {
	res := db.WithContext(ctx).
		Where("defindex = ?", defindex).
		Delete(&domain.Paint{})
	return res.RowsAffected, res.Error
}

// ReplacePaints deletes every paint of defindex and inserts paints in one
// transaction. It returns the number of rows deleted.
func ReplacePaints(ctx context.Context, db *gorm.DB, defindex int, paints []domain.Paint) (int64, error) {
	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := DeletePaintsByDefindex(ctx, tx, defindex)
		if err != nil {
			return err
		}
		deleted = n
		return CreatePaints(ctx, tx, paints)
	})
	return deleted, err
}

// UpdatePaintBlurHash stores the thumbnail placeholder of the paint row id.
// If no rows are affected it returns ErrNotFound.
func UpdatePaintBlurHash(ctx context.Context, db *gorm.DB, id, hash string) error {
	res := db.WithContext(ctx).
		Model(&domain.Paint{}).
		Where("id = ?", id).
		Update("blur_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
