// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seed_cache_hits_total",
			Help: "Dataset loads served from the table cache",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seed_cache_misses_total",
			Help: "Dataset loads that parsed the file",
		},
	)

	RowsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seed_rows_loaded_total",
			Help: "Rows parsed from dataset files",
		},
		[]string{"source"},
	)

	JoinRowsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seed_join_rows_dropped_total",
			Help: "Rows removed by semi-joins because their key was not in the entity set",
		},
		[]string{"view"},
	)

	SectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seed_section_duration_seconds",
			Help:    "Section computation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"type"},
	)

	SectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seed_sections_total",
			Help: "Computed sections by outcome",
		},
		[]string{"status"},
	)

	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seed_executions_total",
			Help: "Report executions by report and outcome",
		},
		[]string{"report", "status"},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(RowsLoaded)
		prometheus.MustRegister(JoinRowsDropped)
		prometheus.MustRegister(SectionDuration)
		prometheus.MustRegister(SectionsTotal)
		prometheus.MustRegister(ExecutionsTotal)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
