// Package metrics exposes Prometheus instruments for the user service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service instruments. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	UserOperations     *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	EventPublishErrors *prometheus.CounterVec
	IndexErrors        prometheus.Counter
}

// New builds instruments on a private registry so several instances can
// coexist (tests, multiple binaries in one process).
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UserOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "user_operations_total",
				Help:      "User operations by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "domain_events_published_total",
				Help:      "Domain events handed to a sink",
			},
			[]string{"sink", "event_type"},
		),
		EventPublishErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "domain_event_publish_errors_total",
				Help:      "Domain events a sink failed to accept",
			},
			[]string{"sink"},
		),
		IndexErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_index_errors_total",
				Help:      "Failed search index writes",
			},
		),
	}
}

// ObserveOperation counts op as "ok" or "error" depending on err.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UserOperations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObservePublished(sink, eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink, eventType).Inc()
}

func (m *Metrics) ObservePublishError(sink string) {
	if m == nil {
		return
	}
	m.EventPublishErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) ObserveIndexError() {
	if m == nil {
		return
	}
	m.IndexErrors.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
