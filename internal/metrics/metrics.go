// Package metrics exposes translation and execution counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomePlanError = "plan_error"
	OutcomeExecError = "exec_error"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	translations *prometheus.CounterVec
	executions   *prometheus.CounterVec
	duration     prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relplan_translations_total",
			Help: "Plans translated to SQL, by outcome.",
		}, []string{"outcome"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relplan_executions_total",
			Help: "Compiled queries run against the store, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relplan_execution_seconds",
			Help:    "Time spent running compiled queries.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.translations,
		m.executions,
		m.duration,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveTranslation counts one translation.
func (m *Metrics) ObserveTranslation(outcome string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(outcome).Inc()
}

// ObserveExecution counts one execution and records its duration.
func (m *Metrics) ObserveExecution(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
