// Package metrics exposes Prometheus collectors for the assistant pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors recorded by the assistant. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	stages      *prometheus.CounterVec
	contextFrom *prometheus.CounterVec
	scrapes     *prometheus.CounterVec
	searches    *prometheus.CounterVec
	aiRequests  *prometheus.CounterVec
	aiLatency   *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmassist",
			Name:      "pipeline_stage_total",
			Help:      "Context assembly stages entered, by stage.",
		}, []string{"stage"}),
		contextFrom: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmassist",
			Name:      "pipeline_context_source_total",
			Help:      "Pipeline runs by the stage that supplied the context.",
		}, []string{"source"}),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmassist",
			Name:      "scrape_total",
			Help:      "Page scrapes by outcome.",
		}, []string{"outcome"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmassist",
			Name:      "web_search_total",
			Help:      "Web search adapter runs by result kind.",
		}, []string{"kind"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmassist",
			Name:      "ai_requests_total",
			Help:      "AI completion calls by mode and outcome.",
		}, []string{"mode", "outcome"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pharmassist",
			Name:      "ai_request_duration_seconds",
			Help:      "AI completion latency by mode.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.stages, m.contextFrom, m.scrapes, m.searches, m.aiRequests, m.aiLatency)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StageEntered counts a pipeline stage transition
func (m *Metrics) StageEntered(stage string) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Inc()
}

// ContextSource counts which stage supplied the final context
func (m *Metrics) ContextSource(source string) {
	if m == nil {
		return
	}
	m.contextFrom.WithLabelValues(source).Inc()
}

// Scrape counts a page scrape outcome
func (m *Metrics) Scrape(outcome string) {
	if m == nil {
		return
	}
	m.scrapes.WithLabelValues(outcome).Inc()
}

// Search counts a web search adapter result
func (m *Metrics) Search(kind string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(kind).Inc()
}

// AIRequest records an AI call
func (m *Metrics) AIRequest(mode string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.aiRequests.WithLabelValues(mode, outcome).Inc()
	m.aiLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}
