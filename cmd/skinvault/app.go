package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/assets"
	"github.com/tbourn/skinvault/internal/catalog"
	"github.com/tbourn/skinvault/internal/config"
	"github.com/tbourn/skinvault/internal/http/handlers"
	"github.com/tbourn/skinvault/internal/repo"
	"github.com/tbourn/skinvault/internal/services"
)

// app is the wired service graph shared by the server and the one-shot
// commands.
type app struct {
	db         *gorm.DB
	categories *services.CategoryService
	paints     *services.PaintService
	assets     *services.AssetService
}

func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, errors.Join(fmt.Errorf("migrating database: %w", err), closeDB(db))
	}

	layout := assets.Layout{ImagesDir: cfg.ImagesDir(), TexturesDir: cfg.TexturesDir()}
	if err := layout.EnsureDirs(); err != nil {
		return nil, errors.Join(fmt.Errorf("preparing %s: %w", cfg.PublicDir, err), closeDB(db))
	}

	src := catalog.New(catalog.Options{
		APIURL:        cfg.Catalog.APIURL,
		ImageURL:      cfg.Catalog.ImageURL,
		TextureURL:    cfg.Catalog.TextureURL,
		Timeout:       cfg.Catalog.Timeout,
		RPS:           cfg.Catalog.RPS,
		Burst:         cfg.Catalog.Burst,
		MaxAssetBytes: cfg.Pipeline.MaxAssetBytes,
	}, log)

	paints := services.NewPaintService(db, repo.PaintStore{}, src, log)
	paints.DefaultChunk = cfg.Pipeline.DefaultChunk
	paints.Concurrency = cfg.Pipeline.FetchConcurrency

	tf := assets.NewTransformer(cfg.Pipeline.ImageSize, cfg.Pipeline.ImageQuality)
	assetSvc := services.NewAssetService(db, repo.PaintStore{}, src, layout, tf, log)
	assetSvc.Delay = cfg.Pipeline.AssetDelay
	assetSvc.Concurrency = cfg.Pipeline.AssetConcurrency

	return &app{
		db:         db,
		categories: services.NewCategoryService(db, repo.CategoryStore{}, src, log),
		paints:     paints,
		assets:     assetSvc,
	}, nil
}

func (a *app) handlers() *handlers.Handlers {
	return handlers.New(a.categories, a.paints, a.assets)
}

func (a *app) Close() error { return closeDB(a.db) }

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
