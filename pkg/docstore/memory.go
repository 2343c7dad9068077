package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process. It backs development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	now         func() time.Time
	newID       func() string
}

type memoryCollection struct {
	docs  map[string]Document
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data any) (Document, error) {
	if err := validCollection(collection); err != nil {
		return Document{}, err
	}
	normalized, err := normalizeData(data)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collection(collection)
	now := s.now()
	doc := Document{
		ID:        s.newID(),
		Version:   1,
		Data:      normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	coll.docs[doc.ID] = doc
	coll.order = append(coll.order, doc.ID)
	return cloneDocument(doc), nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[collection]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc, ok := coll.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, upd Update) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc, ok := coll.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	if upd.IfVersion != 0 && upd.IfVersion != doc.Version {
		return Document{}, ErrVersionConflict
	}
	next, err := applyUpdate(doc.Data, upd)
	if err != nil {
		return Document{}, err
	}
	doc.Data = next
	doc.Version++
	doc.UpdatedAt = s.now()
	coll.docs[id] = doc
	return cloneDocument(doc), nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	compiled, err := compileFilters(filters)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	out := make([]Document, 0, len(coll.order))
	for _, id := range coll.order {
		doc := coll.docs[id]
		if matches(doc.Data, compiled) {
			out = append(out, cloneDocument(doc))
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := coll.docs[id]; !ok {
		return ErrNotFound
	}
	delete(coll.docs, id)
	for i, candidate := range coll.order {
		if candidate == id {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	coll, ok := s.collections[name]
	if !ok {
		coll = &memoryCollection{docs: make(map[string]Document)}
		s.collections[name] = coll
	}
	return coll
}

func cloneDocument(doc Document) Document {
	doc.Data = copyData(doc.Data)
	return doc
}
