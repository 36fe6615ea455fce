package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// MetricsRegistry holds the Prometheus metrics for the tunnel API.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StoreConnects   *prometheus.CounterVec
	BreakerState    prometheus.Gauge
	RateLimited     prometheus.Counter
}

// NewMetricsRegistry creates and registers all metrics on a private registry
// so tests can run side by side without duplicate-registration panics.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunnelapi_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tunnelapi_request_duration_seconds",
				Help:    "HTTP request duration by route",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"route"},
		),

		StoreConnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunnelapi_store_connects_total",
				Help: "Per-request store connection attempts by outcome",
			},
			[]string{"outcome"},
		),

		BreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tunnelapi_store_breaker_open",
				Help: "1 while the store circuit breaker is open",
			},
		),

		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tunnelapi_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.StoreConnects,
		m.BreakerState,
		m.RateLimited,
	)
	return m
}

// Handler returns the Prometheus exposition handler for GET /metrics.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot flattens every gathered sample into name{labels} -> value, which
// keeps operational assertions readable.
func (m *MetricsRegistry) Snapshot() map[string]float64 {
	families, err := m.registry.Gather()
	if err != nil {
		log.Error().Err(err).Msg("metrics gather failed")
		return nil
	}

	snapshot := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			snapshot[sampleName(family, metric)] = sampleValue(family, metric)
		}
	}
	return snapshot
}

func sampleName(family *dto.MetricFamily, metric *dto.Metric) string {
	name := family.GetName()
	labels := metric.GetLabel()
	if len(labels) == 0 {
		return name
	}
	name += "{"
	for i, label := range labels {
		if i > 0 {
			name += ","
		}
		name += label.GetName() + "=" + label.GetValue()
	}
	return name + "}"
}

func sampleValue(family *dto.MetricFamily, metric *dto.Metric) float64 {
	switch family.GetType() {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(metric.GetHistogram().GetSampleCount())
	default:
		return metric.GetUntyped().GetValue()
	}
}
