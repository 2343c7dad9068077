package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
)

// View is a named partition of order statuses shown on a dashboard tab.
type View string

const (
	ViewQueue     View = "queue"
	ViewPreparing View = "preparing"
	ViewKitchen   View = "kitchen"
	ViewCompleted View = "completed"
	ViewAll       View = "all"
)

// Buckets overlap: kitchen shares confirmed with queue and preparing with the
// preparing view.
var viewStatuses = map[View][]enums.OrderStatus{
	ViewQueue:     {enums.OrderStatusPending, enums.OrderStatusConfirmed},
	ViewPreparing: {enums.OrderStatusPreparing, enums.OrderStatusReady},
	ViewKitchen:   {enums.OrderStatusConfirmed, enums.OrderStatusPreparing},
	ViewCompleted: {enums.OrderStatusCompleted},
}

func (v View) String() string { return string(v) }

// ParseView accepts a view name. An empty value selects ViewAll.
func ParseView(value string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(value)))
	if v == "" {
		return ViewAll, nil
	}
	if v == ViewAll {
		return v, nil
	}
	if _, ok := viewStatuses[v]; !ok {
		return "", fmt.Errorf("invalid dashboard view %q", value)
	}
	return v, nil
}

// Statuses returns the statuses shown in the view, or nil for ViewAll.
func (v View) Statuses() []enums.OrderStatus {
	statuses := viewStatuses[v]
	out := make([]enums.OrderStatus, len(statuses))
	copy(out, statuses)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Includes reports whether an order in status belongs to the view.
func (v View) Includes(status enums.OrderStatus) bool {
	if v == ViewAll {
		return true
	}
	for _, s := range viewStatuses[v] {
		if s == status {
			return true
		}
	}
	return false
}

// Bucket keeps the orders belonging to view, preserving their order.
func Bucket(list []orders.Order, view View) []orders.Order {
	out := make([]orders.Order, 0, len(list))
	for _, o := range list {
		if view.Includes(o.Status) {
			out = append(out, o)
		}
	}
	return out
}

// Board is one consistent snapshot of every tab.
type Board struct {
	StoreID     string                    `json:"storeId,omitempty"`
	Queue       []orders.Order            `json:"queue"`
	Preparing   []orders.Order            `json:"preparing"`
	Kitchen     []orders.Order            `json:"kitchen"`
	Completed   []orders.Order            `json:"completed"`
	Counts      map[View]int              `json:"counts"`
	ByStatus    map[enums.OrderStatus]int `json:"byStatus"`
	GeneratedAt time.Time                 `json:"generatedAt"`
}

func BuildBoard(list []orders.Order) Board {
	b := Board{
		Queue:     Bucket(list, ViewQueue),
		Preparing: Bucket(list, ViewPreparing),
		Kitchen:   Bucket(list, ViewKitchen),
		Completed: Bucket(list, ViewCompleted),
		ByStatus:  make(map[enums.OrderStatus]int, len(enums.OrderStatuses())),
	}
	for _, status := range enums.OrderStatuses() {
		b.ByStatus[status] = 0
	}
	for _, o := range list {
		b.ByStatus[o.Status]++
	}
	b.Counts = map[View]int{
		ViewQueue:     len(b.Queue),
		ViewPreparing: len(b.Preparing),
		ViewKitchen:   len(b.Kitchen),
		ViewCompleted: len(b.Completed),
		ViewAll:       len(list),
	}
	return b
}
