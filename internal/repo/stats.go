// Conditional-GET helpers: row counts and the freshest updated_at feed the
// ETag and Last-Modified headers of the list endpoints.

package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/domain"
)

// CategoriesStats returns the number of category rows and the greatest
// UpdatedAt among them. When the table is empty, maxUpdatedAt is nil.
func CategoriesStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(db.WithContext(ctx).Model(&domain.Category{}))
}

// PaintsStats returns the number of paint rows of defindex and the greatest
// UpdatedAt among them. When the defindex has no paints, maxUpdatedAt is nil.
func PaintsStats(ctx context.Context, db *gorm.DB, defindex int) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(db.WithContext(ctx).Model(&domain.Paint{}).Where("defindex = ?", defindex))
}

func tableStats(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// MAX(updated_at) comes back as TEXT from SQLite, so order instead.
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
