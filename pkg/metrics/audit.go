package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics records the fire-and-forget audit pipeline.
type AuditMetrics struct {
	events     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	queueDepth prometheus.Gauge
	flush      *prometheus.HistogramVec
}

// NewAuditMetrics registers the audit metrics on the provided registerer.
func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	if reg == nil {
		return &AuditMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_total",
		Help: "Audit events handed to sinks, by sink and result.",
	}, []string{"sink", "result"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_dropped_total",
		Help: "Audit events written to the dead-letter log.",
	}, []string{"reason"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_queue_depth",
		Help: "Events waiting in the audit queue.",
	})
	flush := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_flush_duration_seconds",
		Help:    "Time spent writing one batch to a sink.",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
	reg.MustRegister(events, dropped, queueDepth, flush)
	return &AuditMetrics{
		events:     events,
		dropped:    dropped,
		queueDepth: queueDepth,
		flush:      flush,
	}
}

// AddEvents counts n events written to sink with the given result ("ok" or "error").
func (m *AuditMetrics) AddEvents(sink, result string, n int) {
	if m == nil || m.events == nil || n <= 0 {
		return
	}
	m.events.WithLabelValues(normalizeLabel(sink), normalizeLabel(result)).Add(float64(n))
}

// AddDropped counts n dead-lettered events.
func (m *AuditMetrics) AddDropped(reason string, n int) {
	if m == nil || m.dropped == nil || n <= 0 {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(reason)).Add(float64(n))
}

// SetQueueDepth reports the current queue length.
func (m *AuditMetrics) SetQueueDepth(depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// ObserveFlush records how long a sink write took.
func (m *AuditMetrics) ObserveFlush(sink string, d time.Duration) {
	if m == nil || m.flush == nil {
		return
	}
	m.flush.WithLabelValues(normalizeLabel(sink)).Observe(d.Seconds())
}
