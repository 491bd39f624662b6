// Package handlers provides HTTP handler implementations for the public API.
//
// This file declares the service contracts the handlers depend on and the
// Handlers type that groups every endpoint.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/skinvault/internal/domain"
)

//
// Service contracts (context-aware)
//

// CategoryService defines category operations consumed by HTTP handlers.
type CategoryService interface {
	// Aggregate rescrapes and replaces every category.
	Aggregate(ctx context.Context) (domain.Envelope[[]domain.Category], error)
	// List returns every stored category.
	List(ctx context.Context) ([]domain.Category, error)
	// GetByDefindex returns one category or services.ErrCategoryNotFound.
	GetByDefindex(ctx context.Context, defindex int) (*domain.Category, error)
	// Stats returns the row count and latest update time (ETag input).
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// PaintService defines paint operations consumed by HTTP handlers.
type PaintService interface {
	// Aggregate rescrapes the paints of one defindex.
	Aggregate(ctx context.Context, req domain.ScrapeRequest) (domain.ScrapeReport, error)
	// Get returns one paint or services.ErrPaintNotFound.
	Get(ctx context.Context, uuid string) (*domain.Paint, error)
	// ListByDefindex returns the paints of one defindex.
	ListByDefindex(ctx context.Context, defindex int) ([]domain.Paint, error)
	// Stats returns the row count and latest update time of one defindex.
	Stats(ctx context.Context, defindex int) (int64, *time.Time, error)
}

// AssetService defines the asset rebuild operations.
type AssetService interface {
	RebuildImages(ctx context.Context, defindex int) (domain.Envelope[domain.AssetResult], error)
	RebuildTextures(ctx context.Context, defindex int) (domain.Envelope[domain.AssetResult], error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for categories, paints and assets.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	catSvc   CategoryService
	paintSvc PaintService
	assetSvc AssetService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(catSvc CategoryService, paintSvc PaintService, assetSvc AssetService) *Handlers {
	return &Handlers{catSvc: catSvc, paintSvc: paintSvc, assetSvc: assetSvc}
}

//
// Helpers
//

// parseDefindex reads a non-negative integer from raw.
func parseDefindex(raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// checkETag sets a weak ETag derived from (count, maxUpdatedAt) and reports
// whether the client already holds it, in which case 304 was written.
// Stats failures skip the ETag.
func checkETag(c *gin.Context, scope string, count int64, maxTS *time.Time, err error) bool {
	if err != nil {
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d"`, scope, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
