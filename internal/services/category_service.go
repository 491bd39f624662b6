// Package services – CategoryService
//
// This file implements CategoryService, which mirrors the upstream item
// definition list into the local store. A rescrape drops excluded item types,
// defaults missing type names and replaces the whole category table in one
// transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/domain"
	"github.com/tbourn/skinvault/internal/repo"
)

// CategorySource fetches the upstream category list.
type CategorySource interface {
	Defindexes(ctx context.Context) ([]domain.CategoryEntry, error)
}

// CategoryRepo defines the repository contract required by CategoryService.
type CategoryRepo interface {
	// List returns every category ordered by defindex.
	List(ctx context.Context, db *gorm.DB) ([]domain.Category, error)

	// GetByDefindex fetches one category or repo.ErrNotFound.
	GetByDefindex(ctx context.Context, db *gorm.DB, defindex int) (*domain.Category, error)

	// Replace deletes every category and inserts cats atomically.
	Replace(ctx context.Context, db *gorm.DB, cats []domain.Category) (int64, error)

	// Stats returns the row count and latest update time.
	Stats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// CategoryService aggregates and serves item categories.
type CategoryService struct {
	DB     *gorm.DB
	Repo   CategoryRepo
	Source CategorySource
	Log    zerolog.Logger
}

// NewCategoryService wires a CategoryService.
func NewCategoryService(db *gorm.DB, r CategoryRepo, src CategorySource, log zerolog.Logger) *CategoryService {
	return &CategoryService{
		DB:     db,
		Repo:   r,
		Source: src,
		Log:    log.With().Str("service", "categories").Logger(),
	}
}

// Aggregate rescrapes the category list and replaces the stored set with
// the normalized result, which it returns. An empty upstream list is a
// successful no-op reported with MsgNoData.
func (s *CategoryService) Aggregate(ctx context.Context) (domain.Envelope[[]domain.Category], error) {
	tr := otel.Tracer("services/CategoryService")
	ctx, span := tr.Start(ctx, "Aggregate")
	defer span.End()

	start := time.Now()
	defer func() { scrapeDuration.WithLabelValues(pipelineCategories).Observe(time.Since(start).Seconds()) }()

	entries, err := s.Source.Defindexes(ctx)
	if err != nil {
		s.fail(span, err)
		return domain.Envelope[[]domain.Category]{}, err
	}
	if len(entries) == 0 {
		scrapeRuns.WithLabelValues(pipelineCategories, "empty").Inc()
		return domain.Envelope[[]domain.Category]{Message: domain.MsgNoData, Data: []domain.Category{}}, nil
	}

	cats := NormalizeCategories(entries)
	for i := range cats {
		if err := Validate(cats[i]); err != nil {
			err = fmt.Errorf("category defindex %d: %w", cats[i].Defindex, err)
			s.fail(span, err)
			return domain.Envelope[[]domain.Category]{}, err
		}
	}

	deleted, err := s.Repo.Replace(ctx, s.DB, cats)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrStore, err)
		s.fail(span, err)
		return domain.Envelope[[]domain.Category]{}, err
	}

	span.SetAttributes(
		attribute.Int("categories.upstream", len(entries)),
		attribute.Int("categories.stored", len(cats)),
		attribute.Int64("categories.deleted", deleted),
	)
	scrapeRuns.WithLabelValues(pipelineCategories, "ok").Inc()
	s.Log.Info().
		Int("upstream", len(entries)).
		Int("stored", len(cats)).
		Int64("deleted", deleted).
		Msg("categories rescraped")

	return domain.Envelope[[]domain.Category]{Message: domain.MsgProcessed, Data: cats}, nil
}

// List returns every stored category.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	out, err := s.Repo.List(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return out, nil
}

// GetByDefindex returns the category of defindex or ErrCategoryNotFound.
func (s *CategoryService) GetByDefindex(ctx context.Context, defindex int) (*domain.Category, error) {
	c, err := s.Repo.GetByDefindex(ctx, s.DB, defindex)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return c, nil
}

// Stats returns the category count and latest update time.
func (s *CategoryService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.Stats(ctx, s.DB)
}

func (s *CategoryService) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	scrapeRuns.WithLabelValues(pipelineCategories, "error").Inc()
	s.Log.Error().Err(err).Msg("category rescrape failed")
}

// NormalizeCategories drops excluded item types and assigns DefaultTypeName
// to entries without one. Text fields are NFC-normalized.
func NormalizeCategories(entries []domain.CategoryEntry) []domain.Category {
	out := make([]domain.Category, 0, len(entries))
	for _, e := range entries {
		typeName := domain.DefaultTypeName
		if e.TypeName != nil && strings.TrimSpace(*e.TypeName) != "" {
			typeName = cleanText(*e.TypeName)
		}
		if domain.IsExcludedType(typeName) {
			continue
		}
		out = append(out, domain.Category{
			UUID:     strings.TrimSpace(e.UUID),
			Name:     cleanText(e.Name),
			TypeName: typeName,
			Defindex: e.Defindex,
		})
	}
	return out
}

// cleanText trims s and applies Unicode NFC normalization.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
