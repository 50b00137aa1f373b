package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the gateway's Prometheus registry: admission counts by
// reason, admission latency, and how often calibration runs.
type Metrics struct {
	registry *prometheus.Registry

	AdmissionsTotal    *prometheus.CounterVec
	AdmissionDuration  *prometheus.HistogramVec
	CalibrationsTotal  prometheus.Counter
	UnknownAPIKeyTotal prometheus.Counter
	StoreErrorsTotal   prometheus.Counter
}

// NewMetrics registers and returns the gateway's metric collectors
// against a fresh, unshared registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		AdmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_admissions_total",
			Help: "Admission decisions by reason.",
		}, []string{"reason"}),
		AdmissionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratelimit_admission_duration_seconds",
			Help:    "Latency of a single admission decision.",
			Buckets: prometheus.DefBuckets,
		}, []string{"reason"}),
		CalibrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_calibrations_total",
			Help: "Admission calls that landed on the calibration branch.",
		}),
		UnknownAPIKeyTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_unknown_api_key_total",
			Help: "Requests carrying an API key absent from the quota catalog.",
		}),
		StoreErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_store_errors_total",
			Help: "Admission calls that failed to reach the counter store.",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ratelimit_build_info",
		Help: "Static build marker; always 1.",
	}, func() float64 { return 1 })

	return m
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
