package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/skinvault/internal/domain"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Category{}, &domain.Paint{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	// Shared-cache memory databases report "table is locked" under concurrent
	// writers; one connection serializes them.
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

// fakeCatalog serves canned paint data and records how many variant
// records were fetched per paintindex.
type fakeCatalog struct {
	paintindexes []domain.PaintindexEntry
	floatLists   map[int][]domain.Candidate
	variants     map[string]domain.VariantRecord

	paintindexErr error
	floatErr      map[int]error
	variantErr    map[string]error

	mu      sync.Mutex
	fetched map[int]int // paintindex -> variant fetches
	calls   atomic.Int64
}

func (f *fakeCatalog) Paintindexes(_ context.Context, _ int) ([]domain.PaintindexEntry, error) {
	f.calls.Add(1)
	return f.paintindexes, f.paintindexErr
}

func (f *fakeCatalog) FloatList(_ context.Context, _, paintindex int) ([]domain.Candidate, error) {
	f.calls.Add(1)
	if err := f.floatErr[paintindex]; err != nil {
		return nil, err
	}
	return f.floatLists[paintindex], nil
}

func (f *fakeCatalog) Variant(_ context.Context, id string) (domain.VariantRecord, error) {
	f.calls.Add(1)
	if err := f.variantErr[id]; err != nil {
		return domain.VariantRecord{}, err
	}
	rec, ok := f.variants[id]
	if !ok {
		return domain.VariantRecord{}, fmt.Errorf("unknown uuid %q", id)
	}
	f.mu.Lock()
	if f.fetched == nil {
		f.fetched = map[int]int{}
	}
	f.fetched[rec.Paintindex]++
	f.mu.Unlock()
	return rec, nil
}

// addPaintindex registers paintindex with one candidate per entry of floats.
// An empty uvType marks a candidate ineligible.
func (f *fakeCatalog) addPaintindex(defindex, paintindex int, floats []float64, uvTypes []string) {
	if f.floatLists == nil {
		f.floatLists = map[int][]domain.Candidate{}
		f.variants = map[string]domain.VariantRecord{}
	}
	f.paintindexes = append(f.paintindexes, domain.PaintindexEntry{Paintindex: paintindex})
	for i, fv := range floats {
		id := fmt.Sprintf("v-%d-%d", paintindex, i+1)
		f.floatLists[paintindex] = append(f.floatLists[paintindex], domain.Candidate{UUID: id})
		f.variants[id] = domain.VariantRecord{
			UUID:       id,
			ItemName:   "AK-47",
			WearName:   "Factory New",
			SkinName:   fmt.Sprintf("Skin %d", paintindex),
			RarityName: "Covert",
			UVType:     uvTypes[i],
			Defindex:   defindex,
			Paintindex: paintindex,
			Texture:    fmt.Sprintf("tex_%d_%d", paintindex, i+1),
			FloatValue: fv,
			Material:   "ak47",
			UVScale:    "1",
		}
	}
}
