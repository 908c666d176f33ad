package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for fill requests and upstream calls.
const (
	OutcomeSuccess      = "success"
	OutcomeMissingField = "missing_field"
	OutcomeUpstream     = "upstream_error"
	OutcomeTransport    = "transport_error"
)

type Metrics struct {
	registry *prometheus.Registry

	FillRequestsTotal    *prometheus.CounterVec
	FillRequestDuration  *prometheus.HistogramVec
	FillRequestsInFlight prometheus.Gauge

	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
}

// New registers the relay collectors, plus Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FillRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formfill_relay_requests_total",
				Help: "Total number of fill requests by outcome",
			},
			[]string{"outcome"},
		),
		FillRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formfill_relay_request_duration_seconds",
				Help:    "Fill request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		FillRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "formfill_relay_requests_in_flight",
				Help: "Number of fill requests currently being processed",
			},
		),

		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formfill_relay_upstream_requests_total",
				Help: "Total number of chat-completion calls by outcome",
			},
			[]string{"outcome"},
		),
		UpstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formfill_relay_upstream_request_duration_seconds",
				Help:    "Chat-completion call duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordFillRequest(outcome string, duration time.Duration) {
	m.FillRequestsTotal.WithLabelValues(outcome).Inc()
	m.FillRequestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordUpstreamRequest(outcome string, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(outcome).Inc()
	m.UpstreamRequestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) IncRequestsInFlight() {
	m.FillRequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.FillRequestsInFlight.Dec()
}
