package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncCreated("guest")
	m.IncCreated("guest")
	m.IncTransition("pending", "confirmed")
	m.IncConflict()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_created_total", "kind", "guest"); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 2 {
		t.Fatalf("expected created=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_transitions_total", "to", "confirmed"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}
	if mf := findMetricFamily(mfs, "order_update_conflicts_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected conflicts=1")
	}
}

func TestFeedMetricsGaugeTracksOpenSubscriptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFeedMetrics(reg)
	m.Opened()
	m.Opened()
	m.Closed()
	m.IncPush()
	m.IncDegraded()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "feed_active_subscriptions")
	if mf == nil {
		t.Fatalf("gauge not exported")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Fatalf("expected one active subscription, got %f", got)
	}
}

func TestAuditMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuditMetrics(reg)
	m.AddEvents("kafka", "error", 3)
	m.AddDropped("queue_full", 1)
	m.AddDropped("queue_full", 0)
	m.ObserveFlush("kafka", 120*time.Millisecond)
	m.SetQueueDepth(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "audit_events_total", "sink", "kafka"); err != nil {
		t.Fatalf("fetch events: %v", err)
	} else if got != 3 {
		t.Fatalf("expected events=3, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "audit_dropped_total", "reason", "queue_full"); err != nil {
		t.Fatalf("fetch dropped: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dropped=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "audit_flush_duration_seconds", "sink", "kafka"); err != nil {
		t.Fatalf("fetch flush: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected flush sum > 0, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var orders *OrderMetrics
	orders.IncCreated("x")
	orders.IncTransition("a", "b")
	orders.IncConflict()

	var feed *FeedMetrics
	feed.Opened()
	feed.Closed()

	audit := NewAuditMetrics(nil)
	audit.AddEvents("log", "ok", 1)
	audit.SetQueueDepth(1)
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
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
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
