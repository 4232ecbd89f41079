// Package metrics exposes Prometheus collectors for the analysis pipeline
// and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty"
	OutcomeNoItems   = "no_item_data"
	OutcomeLoadError = "load_error"
)

var (
	analysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "basketfreq_analyses_total",
		Help: "Analysis runs by outcome",
	}, []string{"outcome"})

	analysisLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "basketfreq_analysis_duration_seconds",
		Help:    "Load, extract and count latency distribution",
		Buckets: prometheus.DefBuckets,
	})

	strategyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "basketfreq_extraction_strategy_total",
		Help: "Item extraction strategy that matched, per run",
	}, []string{"strategy"})

	datasetBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "basketfreq_dataset_bytes",
		Help: "Bytes decoded from the dataset in the last run",
	})

	lastOccurrences = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "basketfreq_item_occurrences",
		Help: "Item occurrences counted in the last run",
	})

	lastProducts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "basketfreq_distinct_products",
		Help: "Distinct products in the last run",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "basketfreq_http_requests_total",
		Help: "HTTP requests by route pattern and status code",
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(
		analysesTotal,
		analysisLatency,
		strategyTotal,
		datasetBytes,
		lastOccurrences,
		lastProducts,
		httpRequests,
	)
}

// Run describes one finished analysis for ObserveRun.
type Run struct {
	Outcome     string
	Strategy    string
	Duration    time.Duration
	BytesRead   int64
	Occurrences int
	Products    int
}

// ObserveRun records a finished analysis.
func ObserveRun(r Run) {
	analysesTotal.WithLabelValues(r.Outcome).Inc()
	analysisLatency.Observe(r.Duration.Seconds())
	if r.Strategy != "" {
		strategyTotal.WithLabelValues(r.Strategy).Inc()
	}
	if r.BytesRead > 0 {
		datasetBytes.Set(float64(r.BytesRead))
	}
	if r.Outcome == OutcomeOK || r.Outcome == OutcomeEmpty {
		lastOccurrences.Set(float64(r.Occurrences))
		lastProducts.Set(float64(r.Products))
	}
}

// ObserveRequest counts one HTTP response.
func ObserveRequest(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
