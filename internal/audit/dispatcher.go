package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	defaultQueueSize     = 1024
	defaultBatchSize     = 50
	defaultWorkers       = 2
	defaultFlushInterval = 2 * time.Second
	defaultWriteTimeout  = 10 * time.Second

	reasonQueueFull = "queue_full"
	reasonClosed    = "closed"
	reasonSinkError = "sink_error"
)

// Sink writes a batch of events to one destination.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []Event) error
}

type DispatcherParams struct {
	Sinks         []Sink
	Logger        *logger.Logger
	Metrics       *metrics.AuditMetrics
	QueueSize     int
	BatchSize     int
	Workers       int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

// Dispatcher fans events out to sinks from a bounded queue. Emit never
// blocks; overflow and sink failures end up in the dead-letter log.
type Dispatcher struct {
	sinks         []Sink
	logg          *logger.Logger
	metrics       *metrics.AuditMetrics
	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker pool.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Sinks) == 0 {
		return nil, errors.New("at least one audit sink is required")
	}
	for _, sink := range params.Sinks {
		if sink == nil {
			return nil, errors.New("audit sink must not be nil")
		}
	}
	queueSize := params.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	flush := params.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}
	timeout := params.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	d := &Dispatcher{
		sinks:         params.Sinks,
		logg:          params.Logger,
		metrics:       params.Metrics,
		batchSize:     batchSize,
		flushInterval: flush,
		writeTimeout:  timeout,
		queue:         make(chan Event, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d, nil
}

// Emit enqueues an event.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.deadLetter(ctx, "", reasonClosed, []Event{event})
		return
	}
	select {
	case d.queue <- event:
		d.metrics.SetQueueDepth(len(d.queue))
	default:
		d.deadLetter(ctx, "", reasonQueueFull, []Event{event})
	}
}

// Close stops intake and waits for queued events to flush. Events still
// queued when ctx expires are lost.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logg.Info(ctx, "audit.dispatcher.drained")
		return nil
	case <-ctx.Done():
		d.logg.Warn(d.logg.WithField(ctx, "pending", len(d.queue)), "audit.dispatcher.drain_timeout")
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, d.batchSize)
	for {
		select {
		case event, ok := <-d.queue:
			if !ok {
				d.flush(batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= d.batchSize {
				d.flush(batch)
				batch = make([]Event, 0, d.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(batch)
				batch = make([]Event, 0, d.batchSize)
			}
		}
	}
}

func (d *Dispatcher) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}
	d.metrics.SetQueueDepth(len(d.queue))

	var errs error
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
		start := time.Now()
		err := write(ctx, sink, batch)
		cancel()
		d.metrics.ObserveFlush(sink.Name(), time.Since(start))
		if err != nil {
			d.metrics.AddEvents(sink.Name(), "error", len(batch))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			d.deadLetter(context.Background(), sink.Name(), reasonSinkError, batch)
			continue
		}
		d.metrics.AddEvents(sink.Name(), "ok", len(batch))
	}
	if errs != nil {
		ctx := d.logg.WithFields(context.Background(), map[string]any{
			"batch_size":   len(batch),
			"failed_sinks": len(multierr.Errors(errs)),
		})
		d.logg.Error(ctx, "audit.flush_failed", errs)
	}
}

func write(ctx context.Context, sink Sink, batch []Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return sink.Write(ctx, batch)
}

func (d *Dispatcher) deadLetter(ctx context.Context, sink, reason string, events []Event) {
	d.metrics.AddDropped(reason, len(events))
	for _, event := range events {
		fields := map[string]any{
			"reason":     reason,
			"event_id":   event.ID.String(),
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"store_id":   event.StoreID,
		}
		if sink != "" {
			fields["sink"] = sink
		}
		d.logg.Warn(d.logg.WithFields(ctx, fields), "audit.dead_letter")
	}
}
