package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type recordingSink struct {
	name    string
	mu      sync.Mutex
	batches [][]Event
	err     error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), events...))
	return s.err
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Write(ctx context.Context, _ []Event) error {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil
}

type panicSink struct{}

func (panicSink) Name() string                         { return "panic" }
func (panicSink) Write(context.Context, []Event) error { panic("boom") }

func event(orderID string) Event {
	return Event{Type: enums.AuditEventOrderStatusChanged, OrderID: orderID, StoreID: "store-1"}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m, label, value) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestDispatcherBatchesToEverySink(t *testing.T) {
	first := &recordingSink{name: "first"}
	second := &recordingSink{name: "second"}
	d, err := NewDispatcher(DispatcherParams{
		Sinks:         []Sink{first, second},
		Logger:        logger.Nop(),
		BatchSize:     2,
		Workers:       1,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	for _, id := range []string{"o1", "o2", "o3"} {
		d.Emit(context.Background(), event(id))
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, sink := range []*recordingSink{first, second} {
		if sink.total() != 3 {
			t.Fatalf("%s: expected 3 events, got %d", sink.name, sink.total())
		}
		if len(sink.batches) != 2 || len(sink.batches[0]) != 2 {
			t.Fatalf("%s: expected a full batch then the drained remainder, got %d batches", sink.name, len(sink.batches))
		}
	}
	if first.batches[0][0].ID.String() == "00000000-0000-0000-0000-000000000000" || first.batches[0][0].OccurredAt.IsZero() {
		t.Fatalf("emit should stamp id and time, got %+v", first.batches[0][0])
	}
}

func TestDispatcherFlushesOnInterval(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d, err := NewDispatcher(DispatcherParams{
		Sinks:         []Sink{sink},
		Logger:        logger.Nop(),
		BatchSize:     100,
		Workers:       1,
		FlushInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer d.Close(context.Background())

	d.Emit(context.Background(), event("o1"))
	deadline := time.Now().Add(2 * time.Second)
	for sink.total() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event was not flushed on the interval")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcherDeadLettersSinkFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	failing := &recordingSink{name: "broken", err: errors.New("unavailable")}
	healthy := &recordingSink{name: "healthy"}
	d, err := NewDispatcher(DispatcherParams{
		Sinks:   []Sink{failing, panicSink{}, healthy},
		Logger:  logger.Nop(),
		Metrics: metrics.NewAuditMetrics(reg),
		Workers: 1,
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	d.Emit(context.Background(), event("o1"))
	d.Emit(context.Background(), event("o2"))
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if healthy.total() != 2 {
		t.Fatalf("healthy sink should still receive events, got %d", healthy.total())
	}
	if got := counterValue(t, reg, "audit_dropped_total", "reason", reasonSinkError); got != 4 {
		t.Fatalf("expected 4 dead-lettered events across two failing sinks, got %v", got)
	}
	if got := counterValue(t, reg, "audit_events_total", "sink", "healthy"); got != 2 {
		t.Fatalf("expected healthy sink counted, got %v", got)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	d, err := NewDispatcher(DispatcherParams{
		Sinks:     []Sink{sink},
		Logger:    logger.Nop(),
		Metrics:   metrics.NewAuditMetrics(reg),
		QueueSize: 1,
		BatchSize: 1,
		Workers:   1,
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}

	d.Emit(context.Background(), event("o1"))
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never reached the sink")
	}

	start := time.Now()
	d.Emit(context.Background(), event("o2"))
	d.Emit(context.Background(), event("o3"))
	if time.Since(start) > time.Second {
		t.Fatal("emit must not block on a full queue")
	}
	if got := counterValue(t, reg, "audit_dropped_total", "reason", reasonQueueFull); got != 1 {
		t.Fatalf("expected one queue_full drop, got %v", got)
	}

	close(sink.release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := &recordingSink{name: "rec"}
	d, err := NewDispatcher(DispatcherParams{Sinks: []Sink{sink}, Logger: logger.Nop(), Metrics: metrics.NewAuditMetrics(reg)})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	d.Emit(context.Background(), event("late"))
	if got := counterValue(t, reg, "audit_dropped_total", "reason", reasonClosed); got != 1 {
		t.Fatalf("expected late event dead-lettered, got %v", got)
	}
	if sink.total() != 0 {
		t.Fatalf("closed dispatcher must not deliver")
	}
}

func TestNewDispatcherValidates(t *testing.T) {
	if _, err := NewDispatcher(DispatcherParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error without sinks")
	}
	if _, err := NewDispatcher(DispatcherParams{Sinks: []Sink{&recordingSink{}}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewDispatcher(DispatcherParams{Sinks: []Sink{nil}, Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error for nil sink")
	}
}
