package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/domain"
)

// CategoryStore adapts the category functions to a method set so services
// can depend on an interface.
type CategoryStore struct{}

func (CategoryStore) List(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	return ListCategories(ctx, db)
}

func (CategoryStore) GetByDefindex(ctx context.Context, db *gorm.DB, defindex int) (*domain.Category, error) {
	return GetCategoryByDefindex(ctx, db, defindex)
}

func (CategoryStore) Replace(ctx context.Context, db *gorm.DB, cats []domain.Category) (int64, error) {
	return ReplaceCategories(ctx, db, cats)
}

func (CategoryStore) Stats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return CategoriesStats(ctx, db)
}

// PaintStore adapts the paint functions to a method set so services can
// depend on an interface.
type PaintStore struct{}

func (PaintStore) ListByDefindex(ctx context.Context, db *gorm.DB, defindex int) ([]domain.Paint, error) {
	return ListPaintsByDefindex(ctx, db, defindex)
}

func (PaintStore) GetByUUID(ctx context.Context, db *gorm.DB, id string) (*domain.Paint, error) {
	return GetPaintByUUID(ctx, db, id)
}

func (PaintStore) Replace(ctx context.Context, db *gorm.DB, defindex int, paints []domain.Paint) (int64, error) {
	return ReplacePaints(ctx, db, defindex, paints)
}

func (PaintStore) SetBlurHash(ctx context.Context, db *gorm.DB, id, hash string) error {
	return UpdatePaintBlurHash(ctx, db, id, hash)
}

func (PaintStore) Stats(ctx context.Context, db *gorm.DB, defindex int) (int64, *time.Time, error) {
	return PaintsStats(ctx, db, defindex)
}
