package metrics

import "github.com/prometheus/client_golang/prometheus"

// FeedMetrics tracks live order subscriptions.
type FeedMetrics struct {
	active   prometheus.Gauge
	pushes   prometheus.Counter
	degraded prometheus.Counter
}

// NewFeedMetrics registers the feed metrics on the provided registerer.
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	if reg == nil {
		return &FeedMetrics{}
	}
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_active_subscriptions",
		Help: "Open live order subscriptions.",
	})
	pushes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_pushes_total",
		Help: "Snapshots delivered to subscribers.",
	})
	degraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_degraded_total",
		Help: "Pushes replaced by an empty list after a store error.",
	})
	reg.MustRegister(active, pushes, degraded)
	return &FeedMetrics{active: active, pushes: pushes, degraded: degraded}
}

func (m *FeedMetrics) Opened() {
	if m == nil || m.active == nil {
		return
	}
	m.active.Inc()
}

func (m *FeedMetrics) Closed() {
	if m == nil || m.active == nil {
		return
	}
	m.active.Dec()
}

func (m *FeedMetrics) IncPush() {
	if m == nil || m.pushes == nil {
		return
	}
	m.pushes.Inc()
}

func (m *FeedMetrics) IncDegraded() {
	if m == nil || m.degraded == nil {
		return
	}
	m.degraded.Inc()
}
