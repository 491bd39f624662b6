// Package services – PaintService
//
// This file implements PaintService, which rescrapes the paint variants of
// one item definition. For every upstream paintindex it fetches the
// float-ordered candidate list, resolves at most Chunk full records, and picks
// the representative variant with ResolveBest. The resolved set replaces the
// stored paints of the defindex in a single transaction, and only after every
// paintindex finished.
//
// Failure semantics:
//   - An empty paintindex list is a successful no-op (MsgNoData, count 0).
//   - A paintindex without an eligible candidate is skipped, logged and named
//     in the result message; the others are still persisted.
//   - Any upstream, validation or store failure aborts the run without
//     touching the store. The caller receives a success-shaped report with
//     count 0 and a "Scrape failed" message; the cause is logged.
//
// Observability: public methods are OpenTelemetry-instrumented and the run
// outcome is exported through Prometheus.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/domain"
	"github.com/tbourn/skinvault/internal/repo"
)

// MsgScrapeFailed prefixes the message of an aborted rescrape.
const MsgScrapeFailed = "Scrape failed"

// PaintSource fetches paint data from the upstream catalog.
type PaintSource interface {
	Paintindexes(ctx context.Context, defindex int) ([]domain.PaintindexEntry, error)
	FloatList(ctx context.Context, defindex, paintindex int) ([]domain.Candidate, error)
	Variant(ctx context.Context, uuid string) (domain.VariantRecord, error)
}

// PaintRepo defines the repository contract required by PaintService and
// AssetService.
type PaintRepo interface {
	// ListByDefindex returns the stored paints of defindex.
	ListByDefindex(ctx context.Context, db *gorm.DB, defindex int) ([]domain.Paint, error)

	// GetByUUID fetches one paint or repo.ErrNotFound.
	GetByUUID(ctx context.Context, db *gorm.DB, uuid string) (*domain.Paint, error)

	// Replace deletes the paints of defindex and inserts paints atomically.
	Replace(ctx context.Context, db *gorm.DB, defindex int, paints []domain.Paint) (int64, error)

	// SetBlurHash stores the thumbnail placeholder of a paint row.
	SetBlurHash(ctx context.Context, db *gorm.DB, id, hash string) error

	// Stats returns the row count and latest update time of defindex.
	Stats(ctx context.Context, db *gorm.DB, defindex int) (int64, *time.Time, error)
}

// PaintService aggregates and serves paint variants.
type PaintService struct {
	DB     *gorm.DB
	Repo   PaintRepo
	Source PaintSource
	Log    zerolog.Logger

	// DefaultChunk applies when a request has no chunk.
	DefaultChunk int
	// Concurrency caps in-flight work per fan-out level.
	Concurrency int
}

// NewPaintService wires a PaintService with default tuning.
func NewPaintService(db *gorm.DB, r PaintRepo, src PaintSource, log zerolog.Logger) *PaintService {
	return &PaintService{
		DB:           db,
		Repo:         r,
		Source:       src,
		Log:          log.With().Str("service", "paints").Logger(),
		DefaultChunk: domain.DefaultChunk,
		Concurrency:  8,
	}
}

// Aggregate rescrapes the paints of req.Defindex. The returned error is
// non-nil only for invalid requests; see the package notes for the
// handling of every other failure.
func (s *PaintService) Aggregate(ctx context.Context, req domain.ScrapeRequest) (domain.ScrapeReport, error) {
	if err := Validate(req); err != nil {
		return domain.ScrapeReport{}, err
	}
	defindex := *req.Defindex
	chunk := req.ChunkOrDefault(s.defaultChunk())

	tr := otel.Tracer("services/PaintService")
	ctx, span := tr.Start(ctx, "Aggregate",
		trace.WithAttributes(
			attribute.Int("paint.defindex", defindex),
			attribute.Int("paint.chunk", chunk),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { scrapeDuration.WithLabelValues(pipelinePaints).Observe(time.Since(start).Seconds()) }()

	log := s.Log.With().Int("defindex", defindex).Int("chunk", chunk).Logger()
	log.Info().Msg("paint scrape started")

	report, err := s.aggregate(ctx, log, defindex, chunk, req.Slot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		scrapeRuns.WithLabelValues(pipelinePaints, "error").Inc()
		log.Error().Err(err).Msg("paint scrape failed")
		return domain.ScrapeReport{Message: MsgScrapeFailed + ": " + err.Error(), Count: 0, Failed: true}, nil
	}

	outcome := "ok"
	if report.Count == 0 {
		outcome = "empty"
	}
	scrapeRuns.WithLabelValues(pipelinePaints, outcome).Inc()
	span.SetAttributes(
		attribute.Int("paint.stored", report.Count),
		attribute.Int("paint.skipped", len(report.Skipped)),
	)
	log.Info().Int("stored", report.Count).Ints("skipped", report.Skipped).Msg("paint scrape finished")
	return report, nil
}

func (s *PaintService) aggregate(ctx context.Context, log zerolog.Logger, defindex, chunk int, slot *string) (domain.ScrapeReport, error) {
	entries, err := s.Source.Paintindexes(ctx, defindex)
	if err != nil {
		return domain.ScrapeReport{}, err
	}
	if len(entries) == 0 {
		return domain.ScrapeReport{Message: domain.MsgNoData}, nil
	}

	// One slot per paintindex keeps the result order stable.
	resolved := make([]*domain.VariantRecord, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, e := range entries {
		g.Go(func() error {
			rec, err := s.resolvePaintindex(gctx, defindex, e.Paintindex, chunk)
			if errors.Is(err, ErrNoEligibleCandidate) {
				log.Warn().Int("paintindex", e.Paintindex).Msg("no eligible candidate, paintindex skipped")
				skippedPaintindexes.Inc()
				return nil
			}
			if err != nil {
				return fmt.Errorf("paintindex %d: %w", e.Paintindex, err)
			}
			resolved[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ScrapeReport{}, err
	}

	var skipped []int
	paints := make([]domain.Paint, 0, len(entries))
	for i, rec := range resolved {
		if rec == nil {
			skipped = append(skipped, entries[i].Paintindex)
			continue
		}
		p := MergePaint(*rec, defindex, slot)
		if err := Validate(p); err != nil {
			return domain.ScrapeReport{}, fmt.Errorf("paint %s: %w", p.UUID, err)
		}
		paints = append(paints, p)
	}
	sort.Ints(skipped)

	if len(paints) == 0 {
		return domain.ScrapeReport{Message: domain.MsgNoData, Skipped: skipped}, nil
	}

	deleted, err := s.Repo.Replace(ctx, s.DB, defindex, paints)
	if err != nil {
		return domain.ScrapeReport{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	log.Debug().Int64("deleted", deleted).Msg("previous paints replaced")

	return domain.ScrapeReport{
		Message: processedMessage(skipped),
		Count:   len(paints),
		Skipped: skipped,
	}, nil
}

// resolvePaintindex fetches at most chunk float-ordered candidates of one
// paintindex and resolves the best one.
func (s *PaintService) resolvePaintindex(ctx context.Context, defindex, paintindex, chunk int) (domain.VariantRecord, error) {
	candidates, err := s.Source.FloatList(ctx, defindex, paintindex)
	if err != nil {
		return domain.VariantRecord{}, err
	}
	if len(candidates) > chunk {
		candidates = candidates[:chunk]
	}

	records := make([]domain.VariantRecord, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, c := range candidates {
		g.Go(func() error {
			rec, err := s.Source.Variant(gctx, c.UUID)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.VariantRecord{}, err
	}
	return ResolveBest(records)
}

// MergePaint maps a resolved variant onto the stored Paint shape. Paintindex
// 0 is always named Vanilla; slot is attached when given.
func MergePaint(rec domain.VariantRecord, defindex int, slot *string) domain.Paint {
	p := domain.Paint{
		UUID:       strings.TrimSpace(rec.UUID),
		ItemName:   cleanText(rec.ItemName),
		WearName:   cleanText(rec.WearName),
		SkinName:   cleanText(rec.SkinName),
		RarityName: cleanText(rec.RarityName),
		UVType:     cleanText(rec.UVType),
		Texture:    strings.TrimSpace(rec.Texture),
		Defindex:   defindex,
		Paintindex: rec.Paintindex,
		Material:   cleanText(rec.Material),
		UVScale:    strings.TrimSpace(rec.UVScale),
	}
	if p.Paintindex == 0 {
		p.SkinName = domain.VanillaSkinName
	}
	if slot != nil && strings.TrimSpace(*slot) != "" {
		v := strings.TrimSpace(*slot)
		p.Slot = &v
	}
	return p
}

func processedMessage(skipped []int) string {
	if len(skipped) == 0 {
		return domain.MsgProcessed
	}
	parts := make([]string, len(skipped))
	for i, v := range skipped {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("%s (skipped paintindexes without eligible candidate: %s)", domain.MsgProcessed, strings.Join(parts, ", "))
}

// Get returns the paint of uuid or ErrPaintNotFound.
func (s *PaintService) Get(ctx context.Context, uuid string) (*domain.Paint, error) {
	p, err := s.Repo.GetByUUID(ctx, s.DB, uuid)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPaintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return p, nil
}

// ListByDefindex returns the stored paints of defindex; empty when none.
func (s *PaintService) ListByDefindex(ctx context.Context, defindex int) ([]domain.Paint, error) {
	out, err := s.Repo.ListByDefindex(ctx, s.DB, defindex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if out == nil {
		out = []domain.Paint{}
	}
	return out, nil
}

// Stats returns the paint count and latest update time of defindex.
func (s *PaintService) Stats(ctx context.Context, defindex int) (int64, *time.Time, error) {
	return s.Repo.Stats(ctx, s.DB, defindex)
}

func (s *PaintService) defaultChunk() int {
	if s.DefaultChunk < 1 {
		return domain.DefaultChunk
	}
	return s.DefaultChunk
}

func (s *PaintService) concurrency() int {
	if s.Concurrency < 1 {
		return 1
	}
	return s.Concurrency
}
