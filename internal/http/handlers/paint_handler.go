// Paint HTTP handlers.
//
// This file exposes REST endpoints for paint resources:
//   - GET    /paints?defindex={n}   (list, ETag support)
//   - GET    /paints/{uuid}         (single)
//   - POST   /paints/scrape         (rescrape one defindex, admin)
//   - POST   /paints/images         (rebuild thumbnails, admin)
//   - POST   /paints/textures       (rebuild textures, admin)
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/skinvault/internal/domain"
	"github.com/tbourn/skinvault/internal/http/middleware"
)

// ListPaints returns the paints of the defindex query parameter; an empty
// list when none are stored.
func (h *Handlers) ListPaints(c *gin.Context) {
	defindex, valid := parseDefindex(c.Query("defindex"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "defindex query parameter must be a non-negative integer")
		return
	}
	ctx := c.Request.Context()

	count, maxTS, err := h.paintSvc.Stats(ctx, defindex)
	if checkETag(c, "paints:"+strconv.Itoa(defindex), count, maxTS, err) {
		return
	}

	items, err := h.paintSvc.ListByDefindex(ctx, defindex)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, domain.Envelope[[]domain.Paint]{Message: domain.MsgOK, Data: items})
}

// GetPaint returns the paint of the uuid path parameter.
func (h *Handlers) GetPaint(c *gin.Context) {
	id := strings.TrimSpace(c.Param("uuid"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "uuid required")
		return
	}

	p, err := h.paintSvc.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, domain.Envelope[*domain.Paint]{Message: domain.MsgOK, Data: p})
}

// ScrapePaints rescrapes the paints of one defindex. Pipeline failures are
// reported in a 200 envelope with data 0; only invalid input is a 400.
func (h *Handlers) ScrapePaints(c *gin.Context) {
	var req domain.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: defindex required")
		return
	}

	report, err := h.paintSvc.Aggregate(c.Request.Context(), req)
	if err != nil {
		failErr(c, err, ErrCodeScrapeFailed)
		return
	}
	middleware.LoggerFrom(c).Info().
		Int("defindex", *req.Defindex).
		Int("stored", report.Count).
		Ints("skipped", report.Skipped).
		Msg("paint scrape command")
	ok(c, http.StatusOK, domain.Envelope[int]{Message: report.Message, Data: report.Count})
}

// RebuildImages regenerates the thumbnails of one defindex.
func (h *Handlers) RebuildImages(c *gin.Context) {
	h.rebuild(c, h.assetSvc.RebuildImages)
}

// RebuildTextures regenerates the textures of one defindex.
func (h *Handlers) RebuildTextures(c *gin.Context) {
	h.rebuild(c, h.assetSvc.RebuildTextures)
}

func (h *Handlers) rebuild(c *gin.Context, run func(context.Context, int) (domain.Envelope[domain.AssetResult], error)) {
	var req domain.AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Defindex == nil || *req.Defindex < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: defindex required")
		return
	}

	env, err := run(c.Request.Context(), *req.Defindex)
	if err != nil {
		failErr(c, err, ErrCodeAssetFailed)
		return
	}
	middleware.LoggerFrom(c).Info().Int("defindex", *req.Defindex).Int("paints", env.Data.PaintCount).Msg("asset rebuild command")
	ok(c, http.StatusOK, env)
}
