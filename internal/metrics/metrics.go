// Package metrics provides Prometheus metrics for gcpimg components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gcpimg"

// Metrics implements gcpimg.Metrics on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	// RenderedTotal counts rendered markup by mode.
	RenderedTotal *prometheus.CounterVec

	// FailedTotal counts failed component requests by error kind.
	FailedTotal *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RenderedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rendered_total",
				Help:      "Total number of rendered image wrappers and pictures",
			},
			[]string{"mode"},
		),
		FailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failed_total",
				Help:      "Total number of failed image requests",
			},
			[]string{"kind"},
		),
	}
	m.registry.MustRegister(
		m.RenderedTotal,
		m.FailedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Rendered records one rendered wrapper or picture.
func (m *Metrics) Rendered(mode string) {
	m.RenderedTotal.WithLabelValues(mode).Inc()
}

// Failed records one failed request.
func (m *Metrics) Failed(kind string) {
	m.FailedTotal.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
