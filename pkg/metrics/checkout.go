package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for checkout observations.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// CheckoutMetrics records sale-recording latency, volume and business rejections.
type CheckoutMetrics struct {
	duration   *prometheus.HistogramVec
	lines      *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storetrack_checkout_duration_seconds",
		Help:    "Duration of sale recording operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	lines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storetrack_checkout_lines_total",
		Help: "Sale lines committed, after duplicate merge.",
	}, []string{"operation"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storetrack_checkout_rejections_total",
		Help: "Sale recording attempts rejected, by error code.",
	}, []string{"operation", "code"})
	reg.MustRegister(duration, lines, rejections)
	return &CheckoutMetrics{
		duration:   duration,
		lines:      lines,
		rejections: rejections,
	}
}

func (c *CheckoutMetrics) ObserveDuration(operation, outcome string, d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(d.Seconds())
}

func (c *CheckoutMetrics) AddLines(operation string, n int) {
	if c == nil || c.lines == nil || n <= 0 {
		return
	}
	c.lines.WithLabelValues(normalizeLabel(operation)).Add(float64(n))
}

func (c *CheckoutMetrics) IncRejection(operation, code string) {
	if c == nil || c.rejections == nil {
		return
	}
	c.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
