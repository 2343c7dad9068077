package orders

import (
	"context"
	"fmt"
	"sort"

	"github.com/angelmondragon/cafeflow-backend/pkg/docstore"
)

// Collection is the document collection holding orders.
const Collection = "orders"

// Repository persists orders as documents.
type Repository interface {
	Create(ctx context.Context, order Order) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, id string, update docstore.Update) (*Order, error)
	ListByStore(ctx context.Context, storeID string) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	store docstore.Store
}

// NewRepository binds a repository to a document store.
func NewRepository(store docstore.Store) (Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	return &repository{store: store}, nil
}

func (r *repository) Create(ctx context.Context, order Order) (*Order, error) {
	order.ID = ""
	doc, err := r.store.Create(ctx, Collection, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return FromDocument(doc)
}

func (r *repository) Get(ctx context.Context, id string) (*Order, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

func (r *repository) Update(ctx context.Context, id string, update docstore.Update) (*Order, error) {
	doc, err := r.store.Update(ctx, Collection, id, update)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

func (r *repository) ListByStore(ctx context.Context, storeID string) ([]Order, error) {
	docs, err := r.store.Query(ctx, Collection, ByStore(storeID)...)
	if err != nil {
		return nil, fmt.Errorf("query store orders: %w", err)
	}
	return FromDocuments(docs)
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	docs, err := r.store.Query(ctx, Collection, docstore.Eq("userId", userID))
	if err != nil {
		return nil, fmt.Errorf("query user orders: %w", err)
	}
	list, err := FromDocuments(docs)
	if err != nil {
		return nil, err
	}
	NewestFirst(list)
	return list, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, Collection, id)
}

// ByStore is the live-query filter for a store's orders.
func ByStore(storeID string) []docstore.Filter {
	return []docstore.Filter{docstore.Eq("storeId", storeID)}
}

// FromDocument decodes a stored document into an Order.
func FromDocument(doc docstore.Document) (*Order, error) {
	var order Order
	if err := doc.Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", doc.ID, err)
	}
	order.ID = doc.ID
	order.Version = doc.Version
	if order.StatusHistory == nil {
		order.StatusHistory = []StatusEntry{}
	}
	return &order, nil
}

// FromDocuments decodes a snapshot, keeping store order.
func FromDocuments(docs []docstore.Document) ([]Order, error) {
	out := make([]Order, 0, len(docs))
	for _, doc := range docs {
		order, err := FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	return out, nil
}

// NewestFirst sorts by createdAt descending, id breaking ties.
func NewestFirst(list []Order) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

// LiveQuery is the push-on-change surface of docstore.Hub.
type LiveQuery interface {
	Subscribe(ctx context.Context, collection string, filters []docstore.Filter, cb docstore.Callback) (func(), error)
}

// SubscribeByStore opens a live query over one store's orders. Every push
// carries the full list, newest first.
func SubscribeByStore(ctx context.Context, live LiveQuery, storeID string, cb func([]Order, error)) (func(), error) {
	if live == nil {
		return nil, fmt.Errorf("live query required")
	}
	return live.Subscribe(ctx, Collection, ByStore(storeID), func(docs []docstore.Document, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		list, err := FromDocuments(docs)
		if err != nil {
			cb(nil, err)
			return
		}
		NewestFirst(list)
		cb(list, nil)
	})
}
