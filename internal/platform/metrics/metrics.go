// Package metrics exposes Prometheus instrumentation for form validation.
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds the validation counters and latencies.
type Metrics struct {
	// Validation outcomes by form and outcome
	Validations *prometheus.CounterVec

	// Failing fields by form and error kind
	FieldErrors *prometheus.CounterVec

	ValidateLatency *prometheus.HistogramVec

	RecordsStored *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the metrics with reg. Tests pass a fresh registry so that
// repeated construction does not collide.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edc_crf_validations_total",
			Help: "Total form validations by form and outcome",
		}, []string{"form", "outcome"}),

		FieldErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edc_crf_field_errors_total",
			Help: "Field errors raised by form and error kind",
		}, []string{"form", "kind"}),

		ValidateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edc_crf_validate_duration_seconds",
			Help:    "Duration of a form validation including related-record lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"form"}),

		RecordsStored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edc_crf_records_stored_total",
			Help: "Validated records persisted by form",
		}, []string{"form"}),

		gatherer: reg,
	}
}

// ObserveValidation records one validation outcome and its duration.
func (m *Metrics) ObserveValidation(form, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(form, outcome).Inc()
	m.ValidateLatency.WithLabelValues(form).Observe(d.Seconds())
}

// IncrementFieldError records one failing field.
func (m *Metrics) IncrementFieldError(form, kind string) {
	if m != nil {
		m.FieldErrors.WithLabelValues(form, kind).Inc()
	}
}

// IncrementStored records one persisted record.
func (m *Metrics) IncrementStored(form string) {
	if m != nil {
		m.RecordsStored.WithLabelValues(form).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
