package orders

import (
	"context"
	"strconv"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

const (
	StatisticsSourceScan     = "scan"
	StatisticsSourceCounters = "counters"
)

// Statistics summarises a store's orders.
//
// AverageOrderValue divides the total of every order, in any status, by the
// order count. AverageCompletedOrderValue divides revenue by the number of
// completed orders.
type Statistics struct {
	StoreID                    string                    `json:"storeId"`
	TotalOrders                int                       `json:"totalOrders"`
	CountByStatus              map[enums.OrderStatus]int `json:"countByStatus"`
	TotalRevenue               float64                   `json:"totalRevenue"`
	AverageOrderValue          float64                   `json:"averageOrderValue"`
	AverageCompletedOrderValue float64                   `json:"averageCompletedOrderValue"`
	Source                     string                    `json:"source"`
}

// tally accumulates in integer cents so scan and counter readings agree.
type tally struct {
	orders       int64
	sumCents     int64
	revenueCents int64
	byStatus     map[enums.OrderStatus]int64
}

func newTally() tally {
	return tally{byStatus: map[enums.OrderStatus]int64{}}
}

func toCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

func (t *tally) add(order Order) {
	cents := toCents(order.Total)
	t.orders++
	t.sumCents += cents
	t.byStatus[order.Status]++
	if order.Status == enums.OrderStatusCompleted {
		t.revenueCents += cents
	}
}

func (t tally) statistics(storeID, source string) *Statistics {
	counts := make(map[enums.OrderStatus]int, len(enums.OrderStatuses()))
	for _, status := range enums.OrderStatuses() {
		counts[status] = int(t.byStatus[status])
	}
	stats := &Statistics{
		StoreID:       storeID,
		TotalOrders:   int(t.orders),
		CountByStatus: counts,
		TotalRevenue:  fromCents(t.revenueCents).InexactFloat64(),
		Source:        source,
	}
	if t.orders > 0 {
		stats.AverageOrderValue = fromCents(t.sumCents).
			Div(decimal.NewFromInt(t.orders)).Round(2).InexactFloat64()
	}
	if completed := t.byStatus[enums.OrderStatusCompleted]; completed > 0 {
		stats.AverageCompletedOrderValue = fromCents(t.revenueCents).
			Div(decimal.NewFromInt(completed)).Round(2).InexactFloat64()
	}
	return stats
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ComputeStatistics scans a full order list.
func ComputeStatistics(storeID string, list []Order) *Statistics {
	t := newTally()
	for _, order := range list {
		t.add(order)
	}
	return t.statistics(storeID, StatisticsSourceScan)
}

// CounterStore is the hash-counter backend for running statistics.
type CounterStore interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	StatsKey(storeID string) string
}

const (
	fieldOrders       = "orders"
	fieldSumCents     = "sum_cents"
	fieldRevenueCents = "revenue_cents"
	statusFieldPrefix = "count:"
)

// counterDelta is a set of hash increments.
type counterDelta map[string]int64

func statusField(status enums.OrderStatus) string {
	return statusFieldPrefix + status.String()
}

func createdDelta(order Order) counterDelta {
	d := counterDelta{
		fieldOrders:               1,
		fieldSumCents:             toCents(order.Total),
		statusField(order.Status): 1,
	}
	if order.Status == enums.OrderStatusCompleted {
		d[fieldRevenueCents] = toCents(order.Total)
	}
	return d
}

func transitionDelta(order Order, from, to enums.OrderStatus) counterDelta {
	if from == to {
		return nil
	}
	d := counterDelta{statusField(from): -1, statusField(to): 1}
	cents := toCents(order.Total)
	if from == enums.OrderStatusCompleted {
		d[fieldRevenueCents] -= cents
	}
	if to == enums.OrderStatusCompleted {
		d[fieldRevenueCents] += cents
	}
	return d
}

func removedDelta(order Order) counterDelta {
	d := createdDelta(order)
	for field, value := range d {
		d[field] = -value
	}
	return d
}

func talliedDelta(t tally) counterDelta {
	d := counterDelta{
		fieldOrders:       t.orders,
		fieldSumCents:     t.sumCents,
		fieldRevenueCents: t.revenueCents,
	}
	for status, n := range t.byStatus {
		d[statusField(status)] = n
	}
	return d
}

func tallyFromHash(fields map[string]string) tally {
	t := newTally()
	for field, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		switch {
		case field == fieldOrders:
			t.orders = n
		case field == fieldSumCents:
			t.sumCents = n
		case field == fieldRevenueCents:
			t.revenueCents = n
		case strings.HasPrefix(field, statusFieldPrefix):
			status, err := enums.ParseOrderStatus(strings.TrimPrefix(field, statusFieldPrefix))
			if err == nil {
				t.byStatus[status] = n
			}
		}
	}
	return t
}
