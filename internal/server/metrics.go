package server

import (
	"net/http"
	"time"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry so several
// servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// runs counts pipeline runs by outcome (ok, empty, error).
	runs *prometheus.CounterVec

	// stageSeconds tracks per-stage pipeline latency.
	stageSeconds *prometheus.HistogramVec

	// requests counts HTTP requests by route and status.
	requests *prometheus.CounterVec
}

// NewMetrics registers the collectors. cache may be nil.
func NewMetrics(cache *gwas.Cache) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Metrics{
		registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gwastrend_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"outcome"}),
		stageSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gwastrend_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}, []string{"stage"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gwastrend_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
	if cache != nil {
		f.NewCounterFunc(prometheus.CounterOpts{
			Name: "gwastrend_dataset_cache_hits_total",
			Help: "Dataset cache hits",
		}, func() float64 { return float64(cache.Stats().Hits) })
		f.NewCounterFunc(prometheus.CounterOpts{
			Name: "gwastrend_dataset_cache_misses_total",
			Help: "Dataset cache misses",
		}, func() float64 { return float64(cache.Stats().Misses) })
	}
	return m
}

// ObserveStage is a gwas.Pipeline OnStage hook.
func (m *Metrics) ObserveStage(s gwas.Stage, d time.Duration) {
	m.stageSeconds.WithLabelValues(string(s)).Observe(d.Seconds())
}

// ObserveRun records the outcome of one pipeline run.
func (m *Metrics) ObserveRun(res *gwas.Result, err error) {
	switch {
	case err != nil:
		m.runs.WithLabelValues("error").Inc()
	case res.Empty:
		m.runs.WithLabelValues("empty").Inc()
	default:
		m.runs.WithLabelValues("ok").Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
