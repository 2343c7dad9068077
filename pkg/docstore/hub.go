package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"golang.org/x/time/rate"
)

// Hub turns point-in-time queries into live subscriptions. Every subscription
// re-runs its query after a change notification on its collection and pushes
// the full result set. Notifications that arrive while a push is pending are
// coalesced, and consecutive pushes are spaced by at least minInterval.
type Hub struct {
	store       Store
	minInterval time.Duration
	logg        *logger.Logger

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

type subscription struct {
	id         uint64
	collection string
	filters    []Filter
	cb         Callback
	wake       chan struct{}
	cancel     context.CancelFunc
	limiter    *rate.Limiter
}

func NewHub(store Store, minInterval time.Duration, logg *logger.Logger) (*Hub, error) {
	if store == nil {
		return nil, fmt.Errorf("docstore: store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Hub{
		store:       store,
		minInterval: minInterval,
		logg:        logg,
		subs:        make(map[uint64]*subscription),
	}, nil
}

// Subscribe delivers the current result set immediately and again after every
// change to collection. The subscription ends when the returned function is
// called or ctx is cancelled. Unsubscribing is idempotent and may be done from
// inside the callback.
func (h *Hub) Subscribe(ctx context.Context, collection string, filters []Filter, cb Callback) (func(), error) {
	if cb == nil {
		return nil, fmt.Errorf("docstore: callback required")
	}
	if _, err := compileFilters(filters); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	limit := rate.Inf
	if h.minInterval > 0 {
		limit = rate.Every(h.minInterval)
	}
	sub := &subscription{
		collection: collection,
		filters:    append([]Filter(nil), filters...),
		cb:         cb,
		wake:       make(chan struct{}, 1),
		cancel:     cancel,
		limiter:    rate.NewLimiter(limit, 1),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.wg.Add(1)
	h.mu.Unlock()

	go h.run(subCtx, sub)

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}

// Changed wakes every subscription on collection. It never blocks.
func (h *Hub) Changed(_ context.Context, collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.collection != collection {
			continue
		}
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// Len reports the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, sub := range h.subs {
		sub.cancel()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) run(ctx context.Context, sub *subscription) {
	defer h.wg.Done()
	defer h.remove(sub.id)

	if sub.limiter.Wait(ctx) != nil {
		return
	}
	h.deliver(ctx, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.wake:
			if sub.limiter.Wait(ctx) != nil {
				return
			}
			h.deliver(ctx, sub)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, sub *subscription) {
	docs, err := h.store.Query(ctx, sub.collection, sub.filters...)
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.logg.Error(ctx, "docstore.subscription.callback_panic", fmt.Errorf("panic: %v", r))
		}
	}()
	sub.cb(docs, err)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		sub.cancel()
		delete(h.subs, id)
	}
}
