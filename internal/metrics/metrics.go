// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/verity/internal/cache"
)

var (
	Evaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verity_evaluations_total",
			Help: "Claim evaluations by outcome (basic_fact, scored, rejected)",
		},
		[]string{"outcome"},
	)

	SignalResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verity_signal_results_total",
			Help: "Signal provider results by signal and error kind",
		},
		[]string{"signal", "error_kind"},
	)

	SignalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verity_signal_duration_seconds",
			Help:    "Time spent waiting on a signal provider",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"signal"},
	)

	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verity_feed_fetches_total",
			Help: "Source group fetches by group and outcome",
		},
		[]string{"group", "outcome"},
	)

	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verity_items_processed_total",
			Help: "Gallery items by processing outcome (scored, degraded, dropped, duplicate)",
		},
		[]string{"outcome"},
	)

	GalleryRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verity_gallery_refreshes_total",
			Help: "Gallery refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	GalleryItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verity_gallery_items",
			Help: "Items in the published gallery snapshot",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verity_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// MemoCollector exports the counters of a result memo
type MemoCollector struct {
	stats     func() cache.MemoStats
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	size      *prometheus.Desc
}

// NewMemoCollector creates a collector that reads stats on every scrape
func NewMemoCollector(name string, stats func() cache.MemoStats) *MemoCollector {
	labels := prometheus.Labels{"memo": name}
	return &MemoCollector{
		stats:     stats,
		hits:      prometheus.NewDesc("verity_memo_hits_total", "Memo lookups served from cache", nil, labels),
		misses:    prometheus.NewDesc("verity_memo_misses_total", "Memo lookups that computed", nil, labels),
		evictions: prometheus.NewDesc("verity_memo_evictions_total", "Entries evicted by the capacity bound", nil, labels),
		size:      prometheus.NewDesc("verity_memo_entries", "Entries currently stored", nil, labels),
	}
}

// Describe implements prometheus.Collector
func (c *MemoCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.size
}

// Collect implements prometheus.Collector
func (c *MemoCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
}

// RegisterMemo registers a memo collector, ignoring a repeated registration of the same memo name
func RegisterMemo(reg prometheus.Registerer, name string, stats func() cache.MemoStats) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	err := reg.Register(NewMemoCollector(name, stats))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
