package dashboard

import (
	"testing"

	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
)

func ordersIn(statuses ...enums.OrderStatus) []orders.Order {
	out := make([]orders.Order, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, orders.Order{ID: string(rune('a' + i)), Status: s})
	}
	return out
}

func ids(list []orders.Order) string {
	out := ""
	for _, o := range list {
		out += o.ID
	}
	return out
}

func TestBucketPartitions(t *testing.T) {
	list := ordersIn(
		enums.OrderStatusPending,   // a
		enums.OrderStatusConfirmed, // b
		enums.OrderStatusPreparing, // c
		enums.OrderStatusReady,     // d
		enums.OrderStatusCompleted, // e
		enums.OrderStatusCancelled, // f
	)
	cases := map[View]string{
		ViewQueue:     "ab",
		ViewPreparing: "cd",
		ViewKitchen:   "bc",
		ViewCompleted: "e",
		ViewAll:       "abcdef",
	}
	for view, want := range cases {
		if got := ids(Bucket(list, view)); got != want {
			t.Fatalf("%s: expected %q, got %q", view, want, got)
		}
	}
}

func TestBuildBoardCounts(t *testing.T) {
	board := BuildBoard(ordersIn(enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.OrderStatusCancelled))
	if board.Counts[ViewQueue] != 1 || board.Counts[ViewKitchen] != 2 || board.Counts[ViewPreparing] != 1 {
		t.Fatalf("unexpected counts %v", board.Counts)
	}
	if board.Counts[ViewCompleted] != 0 || board.Counts[ViewAll] != 3 {
		t.Fatalf("unexpected counts %v", board.Counts)
	}
	if board.ByStatus[enums.OrderStatusCancelled] != 1 || board.ByStatus[enums.OrderStatusPending] != 0 {
		t.Fatalf("unexpected status counts %v", board.ByStatus)
	}
	if len(board.ByStatus) != len(enums.OrderStatuses()) {
		t.Fatalf("expected every status present, got %v", board.ByStatus)
	}
	if board.Completed == nil {
		t.Fatal("empty buckets should encode as []")
	}
}

func TestParseView(t *testing.T) {
	if v, err := ParseView(""); err != nil || v != ViewAll {
		t.Fatalf("expected all for empty view, got %q %v", v, err)
	}
	if v, err := ParseView(" Kitchen "); err != nil || v != ViewKitchen {
		t.Fatalf("expected kitchen, got %q %v", v, err)
	}
	if _, err := ParseView("archive"); err == nil {
		t.Fatal("expected error for unknown view")
	}
	if ViewAll.Statuses() != nil {
		t.Fatal("all view has no fixed statuses")
	}
}
