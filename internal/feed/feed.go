package feed

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/metrics"
)

// Feed opens per-viewer live queries over a store's orders.
type Feed struct {
	live    orders.LiveQuery
	logg    *logger.Logger
	metrics *metrics.FeedMetrics
}

func New(live orders.LiveQuery, logg *logger.Logger, m *metrics.FeedMetrics) (*Feed, error) {
	if live == nil {
		return nil, errors.New("live query is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Feed{live: live, logg: logg, metrics: m}, nil
}

// SubscribeToStoreOrders calls onChange with the store's complete order list,
// newest first, immediately and after every change. A failed read degrades to
// an empty list. The subscription ends when ctx is cancelled or when the
// returned function is called; the function is safe to call more than once.
func (f *Feed) SubscribeToStoreOrders(ctx context.Context, actor orders.Actor, storeID string, onChange func([]orders.Order)) (func(), error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if onChange == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change callback is required")
	}
	if err := actor.StaffOf(storeID); err != nil {
		return nil, err
	}

	ctx = f.logg.WithStoreID(ctx, storeID)
	ctx = f.logg.WithUserID(ctx, actor.ID)
	unsubscribe, err := orders.SubscribeByStore(ctx, f.live, storeID, func(list []orders.Order, err error) {
		if err != nil {
			f.metrics.IncDegraded()
			f.logg.Error(ctx, "feed.subscription.degraded", err)
			onChange([]orders.Order{})
			return
		}
		f.metrics.IncPush()
		onChange(list)
	})
	if err != nil {
		f.logg.Error(ctx, "feed.subscription.open_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open order feed")
	}

	f.metrics.Opened()
	f.logg.Debug(ctx, "feed.subscription.opened")
	var once sync.Once
	release := func() {
		once.Do(func() {
			unsubscribe()
			f.metrics.Closed()
			f.logg.Debug(ctx, "feed.subscription.closed")
		})
	}
	stop := context.AfterFunc(ctx, release)
	return func() {
		stop()
		release()
	}, nil
}
