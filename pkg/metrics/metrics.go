// Package metrics holds the Prometheus collectors of the pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry so tests and multiple servers do not collide
// on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec
	MergedRows    prometheus.Gauge
	ModelScore    *prometheus.GaugeVec
	CacheRequests *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "retail",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retail",
			Name:      "stage_failures_total",
			Help:      "Pipeline stage failures by kind.",
		}, []string{"stage", "kind"}),
		MergedRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "retail",
			Name:      "merged_rows",
			Help:      "Rows in the last merged dataset written.",
		}),
		ModelScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "retail",
			Name:      "model_score",
			Help:      "Held-out scores of the last fitted model.",
		}, []string{"model", "metric"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retail",
			Name:      "model_cache_requests_total",
			Help:      "Fitted-model cache lookups.",
		}, []string{"result"}),
	}
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Failed counts a failure of stage.
func (m *Metrics) Failed(stage, kind string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage, kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
