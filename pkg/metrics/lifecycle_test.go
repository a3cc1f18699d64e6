package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLifecycleMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewLifecycleMetrics(reg)

	metrics.IncTransition("processing")
	metrics.IncTransition("processing")
	metrics.IncPaymentDecision("approved")
	metrics.IncReturn()
	metrics.IncOutboxPublish("success")
	metrics.ObserveOutboxBatch("notification", 150*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "order_transitions_total", "status", "processing"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected transitions=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_decisions_total", "decision", "approved"); err != nil {
		t.Fatalf("fetch decisions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected decisions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_publish_total", "result", "success"); err != nil {
		t.Fatalf("fetch publish: %v", err)
	} else if got != 1 {
		t.Fatalf("expected publish=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "outbox_batch_duration_seconds", "worker", "notification"); err != nil {
		t.Fatalf("fetch batch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestLifecycleMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewLifecycleMetrics(nil)
	metrics.IncTransition("shipped")
	metrics.IncPaymentDecision("rejected")
	metrics.IncReturn()
	metrics.IncOutboxPublish("failure")
	metrics.ObserveOutboxBatch("notification", time.Second)
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
