// Package metrics exposes the process counters scraped at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instrument set for one application instance.
// Constructed once and passed by reference; a fresh registry per instance
// keeps tests isolated.
type Metrics struct {
	Registry *prometheus.Registry

	QueueDepth        prometheus.Gauge
	ItemsProcessed    prometheus.Counter
	ItemsFailed       prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	EnrichmentMisses  prometheus.Counter
	SearchCacheHits   prometheus.Counter
	SearchCacheMisses prometheus.Counter
	SweepDeletions    prometheus.Counter
}

// New creates a metric set on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mdx_ingest_queue_depth",
			Help: "Items currently waiting in the ingestion queue.",
		}),
		ItemsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdx_ingest_items_processed_total",
			Help: "Items the worker has finished, regardless of outcome.",
		}),
		ItemsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdx_ingest_items_failed_total",
			Help: "Items whose processing raised an error.",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdx_ingest_duplicates_skipped_total",
			Help: "Items skipped by the duplicate check.",
		}),
		EnrichmentMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdx_enrichment_misses_total",
			Help: "Enrichment attempts that resolved no metadata.",
		}),
		SearchCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdx_search_cache_hits_total",
			Help: "Search requests served from the result cache.",
		}),
		SearchCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdx_search_cache_misses_total",
			Help: "Search requests that went to the index.",
		}),
		SweepDeletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdx_sweep_deletions_total",
			Help: "Expired tokens and grants removed by the periodic sweep.",
		}),
	}
}
