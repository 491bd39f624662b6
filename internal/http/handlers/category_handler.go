// Category HTTP handlers.
//
// This file exposes REST endpoints for category resources:
//   - GET    /categories             (list, ETag support)
//   - GET    /categories/{defindex}  (single)
//   - POST   /categories/scrape      (rescrape, admin)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/skinvault/internal/domain"
	"github.com/tbourn/skinvault/internal/http/middleware"
)

// ListCategories returns every stored category. Supports weak ETag via
// If-None-Match and may return 304.
func (h *Handlers) ListCategories(c *gin.Context) {
	ctx := c.Request.Context()

	count, maxTS, err := h.catSvc.Stats(ctx)
	if checkETag(c, "categories", count, maxTS, err) {
		return
	}

	items, err := h.catSvc.List(ctx)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.Category{}
	}
	ok(c, http.StatusOK, domain.Envelope[[]domain.Category]{Message: domain.MsgOK, Data: items})
}

// GetCategory returns the category of the defindex path parameter.
func (h *Handlers) GetCategory(c *gin.Context) {
	defindex, valid := parseDefindex(c.Param("defindex"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "defindex must be a non-negative integer")
		return
	}

	cat, err := h.catSvc.GetByDefindex(c.Request.Context(), defindex)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, domain.Envelope[*domain.Category]{Message: domain.MsgOK, Data: cat})
}

// ScrapeCategories rescrapes the upstream category list and replaces the
// stored set. Upstream failures surface as 502.
func (h *Handlers) ScrapeCategories(c *gin.Context) {
	env, err := h.catSvc.Aggregate(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeScrapeFailed)
		return
	}
	middleware.LoggerFrom(c).Info().Int("stored", len(env.Data)).Msg("category scrape command")
	ok(c, http.StatusOK, env)
}
