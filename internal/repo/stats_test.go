package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/skinvault/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCategoriesStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := CategoriesStats(context.Background(), db)
	if err == nil {
		t.Fatalf("expected error due to missing categories table")
	}
}

func TestCategoriesStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Category{})
	count, maxAt, err := CategoriesStats(context.Background(), db)
	if err != nil {
		t.Fatalf("CategoriesStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestPaintsStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Paint{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for defindex 7
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other defindex

	seed := []domain.Paint{
		paintRow("p1", 7, 1, t1),
		paintRow("p2", 7, 2, t2),
		paintRow("p3", 9, 1, t3),
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	count, maxAt, err := PaintsStats(context.Background(), db, 7)
	if err != nil {
		t.Fatalf("PaintsStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count=2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt=%v, got %v", t2, maxAt)
	}

	count, maxAt, err = PaintsStats(context.Background(), db, 42)
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil, nil) for unknown defindex, got (%d, %v, %v)", count, maxAt, err)
	}
}

func paintRow(id string, defindex, paintindex int, at time.Time) domain.Paint {
	return domain.Paint{
		ID:         id,
		UUID:       "uuid-" + id,
		ItemName:   "AK-47",
		WearName:   "Factory New",
		SkinName:   fmt.Sprintf("skin-%d", paintindex),
		RarityName: "Covert",
		UVType:     "a",
		Texture:    "tex-" + id,
		Defindex:   defindex,
		Paintindex: paintindex,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}
