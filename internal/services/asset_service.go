// Package services – AssetService
//
// This file implements AssetService, which rebuilds the local thumbnails and
// textures of every stored paint of a defindex. Each paint is one task:
// stream the remote source, pause for Delay, re-encode, and move the result
// into place atomically. Tasks run concurrently up to Concurrency.
//
// There is no per-record isolation: the first failing task fails the whole
// command. Every launched task is still awaited, and files written by tasks
// that succeeded stay on disk.
package services

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/skinvault/internal/assets"
	"github.com/tbourn/skinvault/internal/domain"
)

// AssetSource locates and streams remote asset sources.
type AssetSource interface {
	ImageURL(uuid string) string
	TextureURL(texture string) string
	OpenAsset(ctx context.Context, url string) (io.ReadCloser, error)
}

// AssetService rebuilds image and texture files.
type AssetService struct {
	DB          *gorm.DB
	Repo        PaintRepo
	Source      AssetSource
	Layout      assets.Layout
	Transformer *assets.Transformer
	Log         zerolog.Logger

	// Delay is the pause between fetching a source and transforming it.
	Delay time.Duration
	// Concurrency caps in-flight tasks.
	Concurrency int
}

// NewAssetService wires an AssetService with default tuning.
func NewAssetService(db *gorm.DB, r PaintRepo, src AssetSource, layout assets.Layout, tf *assets.Transformer, log zerolog.Logger) *AssetService {
	return &AssetService{
		DB:          db,
		Repo:        r,
		Source:      src,
		Layout:      layout,
		Transformer: tf,
		Log:         log.With().Str("service", "assets").Logger(),
		Delay:       500 * time.Millisecond,
		Concurrency: 4,
	}
}

// RebuildImages writes a square thumbnail for every paint of defindex and
// stores its BlurHash.
func (s *AssetService) RebuildImages(ctx context.Context, defindex int) (domain.Envelope[domain.AssetResult], error) {
	return s.rebuild(ctx, pipelineImages, defindex, s.image)
}

// RebuildTextures re-encodes the texture of every paint of defindex into the
// defindex texture directory, creating it when missing.
func (s *AssetService) RebuildTextures(ctx context.Context, defindex int) (domain.Envelope[domain.AssetResult], error) {
	return s.rebuild(ctx, pipelineTextures, defindex, s.texture)
}

type assetTask func(ctx context.Context, p domain.Paint) error

func (s *AssetService) rebuild(ctx context.Context, kind string, defindex int, task assetTask) (domain.Envelope[domain.AssetResult], error) {
	tr := otel.Tracer("services/AssetService")
	ctx, span := tr.Start(ctx, "Rebuild",
		trace.WithAttributes(
			attribute.String("asset.kind", kind),
			attribute.Int("paint.defindex", defindex),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { scrapeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds()) }()

	paints, err := s.Repo.ListByDefindex(ctx, s.DB, defindex)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrStore, err)
		s.fail(span, kind, err)
		return domain.Envelope[domain.AssetResult]{}, err
	}
	if len(paints) == 0 {
		scrapeRuns.WithLabelValues(kind, "empty").Inc()
		return domain.Envelope[domain.AssetResult]{Message: domain.MsgNoData, Data: domain.AssetResult{PaintCount: 0}}, nil
	}

	if kind == pipelineTextures {
		if _, err := s.Layout.EnsureTextureDir(defindex); err != nil {
			s.fail(span, kind, err)
			return domain.Envelope[domain.AssetResult]{}, err
		}
	}

	// Plain Group: a failure does not cancel the other tasks.
	var g errgroup.Group
	g.SetLimit(s.concurrency())
	for _, p := range paints {
		g.Go(func() error {
			if err := task(ctx, p); err != nil {
				assetsWritten.WithLabelValues(kind, "error").Inc()
				s.Log.Warn().Err(err).Str("kind", kind).Str("uuid", p.UUID).Msg("asset task failed")
				return fmt.Errorf("%s %s: %w", kind, p.UUID, err)
			}
			assetsWritten.WithLabelValues(kind, "ok").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(span, kind, err)
		return domain.Envelope[domain.AssetResult]{}, err
	}

	scrapeRuns.WithLabelValues(kind, "ok").Inc()
	span.SetAttributes(attribute.Int("asset.count", len(paints)))
	s.Log.Info().Str("kind", kind).Int("defindex", defindex).Int("count", len(paints)).Msg("assets rebuilt")
	return domain.Envelope[domain.AssetResult]{Message: domain.MsgSuccess, Data: domain.AssetResult{PaintCount: len(paints)}}, nil
}

func (s *AssetService) image(ctx context.Context, p domain.Paint) error {
	path, err := s.Layout.ImagePath(p.UUID)
	if err != nil {
		return err
	}
	var thumb image.Image
	err = s.fetchAndWrite(ctx, s.Source.ImageURL(p.UUID), path, func(w io.Writer, r io.Reader) error {
		img, err := s.Transformer.Thumbnail(w, r)
		thumb = img
		return err
	})
	if err != nil {
		return err
	}

	hash, err := assets.BlurHash(thumb)
	if err != nil {
		s.Log.Warn().Err(err).Str("uuid", p.UUID).Msg("blurhash failed")
		return nil
	}
	if err := s.Repo.SetBlurHash(ctx, s.DB, p.ID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func (s *AssetService) texture(ctx context.Context, p domain.Paint) error {
	path, err := s.Layout.TexturePath(p.Defindex, p.Texture)
	if err != nil {
		return err
	}
	return s.fetchAndWrite(ctx, s.Source.TextureURL(p.Texture), path, s.Transformer.Reencode)
}

// fetchAndWrite streams url, waits Delay, then writes the transformed
// payload to path.
func (s *AssetService) fetchAndWrite(ctx context.Context, url, path string, transform func(io.Writer, io.Reader) error) error {
	body, err := s.Source.OpenAsset(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	err = assets.WriteAtomic(path, func(w io.Writer) error {
		if err := transform(w, body); err != nil {
			return transformError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Log.Debug().Str("path", path).Msg("asset written")
	return nil
}

// transformError tags decode and encode failures with ErrTransform while
// keeping the original cause reachable.
func transformError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransform, err)
}

func (s *AssetService) fail(span trace.Span, kind string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	scrapeRuns.WithLabelValues(kind, "error").Inc()
	s.Log.Error().Err(err).Str("kind", kind).Msg("asset rebuild failed")
}

func (s *AssetService) concurrency() int {
	if s.Concurrency < 1 {
		return 1
	}
	return s.Concurrency
}
