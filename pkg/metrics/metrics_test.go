package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.ObserveDuration("checkout", OutcomeSuccess, 120*time.Millisecond)
	m.AddLines("checkout", 3)
	m.AddLines("checkout", 0)
	m.IncRejection("checkout", "INSUFFICIENT_STOCK")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storetrack_checkout_lines_total", "operation", "checkout"); err != nil {
		t.Fatalf("fetch lines: %v", err)
	} else if got != 3 {
		t.Fatalf("expected lines=3, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storetrack_checkout_rejections_total", "code", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch rejections: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejections=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "storetrack_checkout_duration_seconds", "outcome", OutcomeSuccess); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("sale_transaction_recorded")
	m.IncPublished("sale_transaction_recorded")
	m.IncFailed("sale_transaction_recorded")
	m.IncDeadLettered("max_attempts")
	m.ObserveBatch(10 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchCounterValue(mfs, "storetrack_outbox_published_total", "event_type", "sale_transaction_recorded"); got != 2 {
		t.Fatalf("expected published=2, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "storetrack_outbox_dead_lettered_total", "reason", "max_attempts"); got != 1 {
		t.Fatalf("expected dead lettered=1, got %f", got)
	}
}

func TestHTTPMetricsLabelsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/sales/checkout", 201, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storetrack_http_requests_total", "route", "/api/v1/sales/checkout"); err != nil || got != 1 {
		t.Fatalf("expected one request, got %f (%v)", got, err)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var c *CheckoutMetrics
	c.ObserveDuration("x", OutcomeError, time.Second)
	c.AddLines("x", 1)
	c.IncRejection("x", "y")

	NewOutboxMetrics(nil).IncPublished("x")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
