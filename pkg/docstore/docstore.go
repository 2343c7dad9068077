// Package docstore provides a small document database over named collections:
// create, point-in-time equality queries, merge-style updates with array
// append, optimistic versioning, and live subscriptions through Hub.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("docstore: document not found")
	ErrVersionConflict = errors.New("docstore: version conflict")
	ErrInvalidDocument = errors.New("docstore: invalid document")
	ErrInvalidFilter   = errors.New("docstore: invalid filter")
	ErrClosed          = errors.New("docstore: hub closed")
)

// Document is one stored record. Data never contains the "id" key; the
// identifier lives in ID and is injected by Decode.
type Document struct {
	ID        string
	Version   int64
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode copies the document into dest through its JSON representation.
func (d Document) Decode(dest any) error {
	payload := make(map[string]any, len(d.Data)+1)
	for k, v := range d.Data {
		payload[k] = v
	}
	payload["id"] = d.ID
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Update describes a partial write. Set overwrites fields (a nil value removes
// the field) and Append adds elements to array fields, creating them when
// missing. A non-zero IfVersion makes the write conditional on the current
// version.
type Update struct {
	Set       map[string]any
	Append    map[string][]any
	IfVersion int64
}

// Callback receives the complete matching result set on every push.
type Callback func(docs []Document, err error)

// Store is the persistence surface shared by the memory and SQL backends.
type Store interface {
	Create(ctx context.Context, collection string, data any) (Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Update(ctx context.Context, collection, id string, upd Update) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Delete(ctx context.Context, collection, id string) error
}

// ChangeNotifier is told about every committed write.
type ChangeNotifier interface {
	Changed(ctx context.Context, collection string)
}

// NotifierFunc adapts a function to ChangeNotifier.
type NotifierFunc func(ctx context.Context, collection string)

func (f NotifierFunc) Changed(ctx context.Context, collection string) { f(ctx, collection) }

type notifyingStore struct {
	Store
	notifier ChangeNotifier
}

// WithNotifier wraps store so that successful writes are reported to notifier.
func WithNotifier(store Store, notifier ChangeNotifier) Store {
	if notifier == nil {
		return store
	}
	return &notifyingStore{Store: store, notifier: notifier}
}

func (s *notifyingStore) Create(ctx context.Context, collection string, data any) (Document, error) {
	doc, err := s.Store.Create(ctx, collection, data)
	if err == nil {
		s.notifier.Changed(context.WithoutCancel(ctx), collection)
	}
	return doc, err
}

func (s *notifyingStore) Update(ctx context.Context, collection, id string, upd Update) (Document, error) {
	doc, err := s.Store.Update(ctx, collection, id, upd)
	if err == nil {
		s.notifier.Changed(context.WithoutCancel(ctx), collection)
	}
	return doc, err
}

func (s *notifyingStore) Delete(ctx context.Context, collection, id string) error {
	err := s.Store.Delete(ctx, collection, id)
	if err == nil {
		s.notifier.Changed(context.WithoutCancel(ctx), collection)
	}
	return err
}
