// Package metrics records tool invocation and catalog metrics in Prometheus form.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics. A nil *Collector records nothing.
type Collector struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	invocationsActive  prometheus.Gauge
	remoteStatus       *prometheus.CounterVec

	catalogTools *prometheus.GaugeVec
	specLoads    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollector registers the metrics on a fresh registry under namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	return NewCollectorWithRegistry(namespace, reg, reg)
}

// NewCollectorWithRegistry registers the metrics on reg and serves them from g.
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		invocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_invocations_total",
				Help:      "Total number of tool invocations by outcome",
			},
			[]string{"source", "tool", "outcome"},
		),
		invocationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_invocation_duration_seconds",
				Help:      "Tool invocation duration in seconds, including the remote call",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"source", "tool"},
		),
		invocationsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tool_invocations_in_flight",
				Help:      "Tool invocations currently waiting on the remote API",
			},
		),
		remoteStatus: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_responses_total",
				Help:      "Remote API responses by status class",
			},
			[]string{"source", "class"},
		),
		catalogTools: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_tools",
				Help:      "Number of tools exposed per source",
			},
			[]string{"source"},
		),
		specLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spec_loads_total",
				Help:      "API description loads by result",
			},
			[]string{"source", "result"},
		),
		gatherer: g,
	}
}

// ObserveInvocation records one finished invocation.
func (c *Collector) ObserveInvocation(source, tool, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.invocationsTotal.WithLabelValues(source, tool, outcome).Inc()
	c.invocationDuration.WithLabelValues(source, tool).Observe(d.Seconds())
}

// Track marks an invocation as in flight until the returned func is called.
func (c *Collector) Track() func() {
	if c == nil {
		return func() {}
	}
	c.invocationsActive.Inc()
	return c.invocationsActive.Dec
}

// ObserveStatus counts a remote response by status class ("2xx", "4xx", ...).
func (c *Collector) ObserveStatus(source string, status int) {
	if c == nil || status < 100 {
		return
	}
	class := string(rune('0'+status/100)) + "xx"
	c.remoteStatus.WithLabelValues(source, class).Inc()
}

// SetCatalogSize records how many tools a source exposes.
func (c *Collector) SetCatalogSize(source string, n int) {
	if c == nil {
		return
	}
	c.catalogTools.WithLabelValues(source).Set(float64(n))
}

// ObserveSpecLoad counts a load attempt; result is "ok" or an error kind.
func (c *Collector) ObserveSpecLoad(source, result string) {
	if c == nil {
		return
	}
	c.specLoads.WithLabelValues(source, result).Inc()
}

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
