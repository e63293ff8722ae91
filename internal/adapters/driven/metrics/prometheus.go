// Package metrics provides Prometheus metrics for tracegas.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.Metrics = (*Recorder)(nil)

const namespace = "tracegas"

// Recorder records token, catalogue and resolution metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	tokenExchanges  *prometheus.CounterVec
	tokenDuration   prometheus.Histogram
	catalogQueries  *prometheus.CounterVec
	catalogDuration prometheus.Histogram
	catalogProducts prometheus.Histogram
	resolutions     *prometheus.CounterVec
	skippedRecords  prometheus.Counter
}

// NewRecorder creates a recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		tokenExchanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_exchanges_total",
				Help:      "Token requests by outcome (success, failure, shared)",
			},
			[]string{"outcome"},
		),
		tokenDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_exchange_duration_seconds",
				Help:      "Duration of client-credentials exchanges in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		catalogQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_queries_total",
				Help:      "Catalogue queries by outcome (success, failure, empty, cached)",
			},
			[]string{"outcome"},
		),
		catalogDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_query_duration_seconds",
				Help:      "Duration of catalogue queries in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		catalogProducts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_products",
				Help:      "Usable products per catalogue query",
				Buckets:   []float64{0, 1, 2, 5, 10, 20},
			},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Date selections by outcome (success, failure, empty, stale)",
			},
			[]string{"outcome"},
		),
		skippedRecords: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_skipped_records_total",
				Help:      "Catalogue records dropped during mapping",
			},
		),
	}
}

// TokenExchange records one exchange attempt or a shared wait.
func (r *Recorder) TokenExchange(outcome string, d time.Duration) {
	r.tokenExchanges.WithLabelValues(outcome).Inc()
	if outcome != driven.OutcomeShared {
		r.tokenDuration.Observe(d.Seconds())
	}
}

// CatalogQuery records one catalogue query.
func (r *Recorder) CatalogQuery(outcome string, products int, d time.Duration) {
	r.catalogQueries.WithLabelValues(outcome).Inc()
	if outcome == driven.OutcomeCached {
		return
	}
	r.catalogDuration.Observe(d.Seconds())
	if outcome != driven.OutcomeFailure {
		r.catalogProducts.Observe(float64(products))
	}
}

// Resolution records how a date selection ended.
func (r *Recorder) Resolution(outcome string) {
	r.resolutions.WithLabelValues(outcome).Inc()
}

// SkippedRecords counts catalogue records dropped during mapping.
func (r *Recorder) SkippedRecords(n int) {
	r.skippedRecords.Add(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
