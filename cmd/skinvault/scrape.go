package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tbourn/skinvault/internal/domain"
)

var errScrapeFailed = errors.New("scrape failed")

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one pipeline command and print its JSON envelope",
		Long: `Run a catalog or asset command once against the configured database and
public directory, without starting the HTTP server. The result is printed to
stdout in the same envelope the admin endpoints return.`,
	}
	cmd.AddCommand(
		newScrapeCategoriesCmd(opts),
		newScrapePaintsCmd(opts),
		newRebuildCmd(opts, "images", "Rebuild the thumbnails of one defindex"),
		newRebuildCmd(opts, "textures", "Rebuild the textures of one defindex"),
	)
	return cmd
}

func newScrapeCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Replace the stored categories with the upstream list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				env, err := a.categories.Aggregate(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), env)
			})
		},
	}
}

func newScrapePaintsCmd(opts *rootOptions) *cobra.Command {
	var (
		defindex int
		slot     string
		chunk    int
	)
	cmd := &cobra.Command{
		Use:   "paints",
		Short: "Replace the stored paints of one defindex",
		Long: `Resolve the best variant of every paintindex of --defindex and replace
the stored paints of that defindex. Exits non-zero when the scrape aborts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.ScrapeRequest{Defindex: &defindex}
			if cmd.Flags().Changed("slot") {
				req.Slot = &slot
			}
			if cmd.Flags().Changed("chunk") {
				req.Chunk = &chunk
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				report, err := a.paints.Aggregate(ctx, req)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), domain.Envelope[int]{Message: report.Message, Data: report.Count}); err != nil {
					return err
				}
				if report.Failed {
					return errScrapeFailed
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&defindex, "defindex", 0, "item definition index to scrape")
	cmd.Flags().StringVar(&slot, "slot", "", "loadout slot stored on every paint")
	cmd.Flags().IntVar(&chunk, "chunk", 0, "candidates resolved per paintindex (default SCRAPE_CHUNK_DEFAULT)")
	_ = cmd.MarkFlagRequired("defindex")
	return cmd
}

// newRebuildCmd builds the images and textures subcommands.
func newRebuildCmd(opts *rootOptions, kind, short string) *cobra.Command {
	var defindex int
	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				rebuild := a.assets.RebuildImages
				if kind == "textures" {
					rebuild = a.assets.RebuildTextures
				}
				env, err := rebuild(ctx, defindex)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), env)
			})
		},
	}
	cmd.Flags().IntVar(&defindex, "defindex", 0, "item definition index whose assets are rebuilt")
	_ = cmd.MarkFlagRequired("defindex")
	return cmd
}

// withApp wires the service graph for one command and closes it afterwards.
func withApp(ctx context.Context, opts *rootOptions, fn func(context.Context, *app) error) error {
	if opts.cfg.Catalog.APIURL == "" {
		return errors.New("EXTERNAL_API_URL is not set")
	}
	a, err := newApp(opts.cfg, opts.log)
	if err != nil {
		return err
	}
	err = fn(ctx, a)
	if cerr := a.Close(); cerr != nil {
		opts.log.Warn().Err(cerr).Msg("closing database")
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
