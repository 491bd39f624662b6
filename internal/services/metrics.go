package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scrapeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_runs_total",
			Help: "Pipeline runs by pipeline and outcome.",
		},
		[]string{"pipeline", "outcome"},
	)
	scrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Pipeline run duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"pipeline"},
	)
	skippedPaintindexes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_skipped_paintindexes_total",
			Help: "Paintindexes skipped for lack of an eligible candidate.",
		},
	)
	assetsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assets_written_total",
			Help: "Asset files processed by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(scrapeRuns, scrapeDuration, skippedPaintindexes, assetsWritten)
}

// Pipeline labels.
const (
	pipelineCategories = "categories"
	pipelinePaints     = "paints"
	pipelineImages     = "images"
	pipelineTextures   = "textures"
)
