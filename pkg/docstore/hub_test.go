package docstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushRecorder struct {
	mu     sync.Mutex
	pushes [][]Document
	errs   []error
}

func (r *pushRecorder) callback(docs []Document, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, docs)
	r.errs = append(r.errs, err)
}

func (r *pushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *pushRecorder) last() ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pushes) == 0 {
		return nil, nil
	}
	return r.pushes[len(r.pushes)-1], r.errs[len(r.errs)-1]
}

func (r *pushRecorder) lastIDs() []string {
	docs, _ := r.last()
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

func newTestHub(t *testing.T, interval time.Duration) (*Hub, Store) {
	t.Helper()
	mem := NewMemoryStore()
	hub, err := NewHub(mem, interval, nil)
	require.NoError(t, err)
	t.Cleanup(hub.Close)
	return hub, WithNotifier(mem, hub)
}

func TestHubDeliversInitialSnapshotAndChanges(t *testing.T) {
	ctx := context.Background()
	hub, store := newTestHub(t, 0)

	existing, err := store.Create(ctx, "orders", map[string]any{"storeId": "s1"})
	require.NoError(t, err)

	rec := &pushRecorder{}
	unsubscribe, err := hub.Subscribe(ctx, "orders", []Filter{Eq("storeId", "s1")}, rec.callback)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{existing.ID}, rec.lastIDs())

	second, err := store.Create(ctx, "orders", map[string]any{"storeId": "s1"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "orders", map[string]any{"storeId": "s2"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ids := rec.lastIDs()
		return len(ids) == 2 && ids[1] == second.ID
	}, time.Second, 5*time.Millisecond)
}

func TestHubSubscribersConverge(t *testing.T) {
	ctx := context.Background()
	hub, store := newTestHub(t, 0)

	a, b := &pushRecorder{}, &pushRecorder{}
	unsubA, err := hub.Subscribe(ctx, "orders", []Filter{Eq("storeId", "s1")}, a.callback)
	require.NoError(t, err)
	defer unsubA()
	unsubB, err := hub.Subscribe(ctx, "orders", []Filter{Eq("storeId", "s1")}, b.callback)
	require.NoError(t, err)
	defer unsubB()

	doc, err := store.Create(ctx, "orders", map[string]any{"storeId": "s1", "status": "pending"})
	require.NoError(t, err)
	_, err = store.Update(ctx, "orders", doc.ID, Update{Set: map[string]any{"status": "confirmed"}})
	require.NoError(t, err)

	settled := func(r *pushRecorder) bool {
		docs, _ := r.last()
		return len(docs) == 1 && docs[0].Data["status"] == "confirmed"
	}
	require.Eventually(t, func() bool { return settled(a) && settled(b) }, time.Second, 5*time.Millisecond)
}

func TestHubUnsubscribeStopsPushes(t *testing.T) {
	ctx := context.Background()
	hub, store := newTestHub(t, 0)

	rec := &pushRecorder{}
	unsubscribe, err := hub.Subscribe(ctx, "orders", nil, rec.callback)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, err = store.Create(ctx, "orders", map[string]any{"storeId": "s1"})
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestHubUnsubscribeFromCallback(t *testing.T) {
	ctx := context.Background()
	hub, _ := newTestHub(t, 0)

	var calls atomic.Int32
	var unsubscribe func()
	ready := make(chan struct{})
	cb := func([]Document, error) {
		<-ready
		calls.Add(1)
		unsubscribe()
	}
	unsubscribe, err := hub.Subscribe(ctx, "orders", nil, cb)
	require.NoError(t, err)
	close(ready)

	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHubContextCancellationEndsSubscription(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	ctx, cancel := context.WithCancel(context.Background())

	rec := &pushRecorder{}
	_, err := hub.Subscribe(ctx, "orders", nil, rec.callback)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}

type flakyStore struct {
	Store
	fail atomic.Bool
}

func (s *flakyStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if s.fail.Load() {
		return nil, errors.New("transport down")
	}
	return s.Store.Query(ctx, collection, filters...)
}

func TestHubPassesQueryErrorsAndKeepsSubscription(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: NewMemoryStore()}
	flaky.fail.Store(true)
	hub, err := NewHub(flaky, 0, nil)
	require.NoError(t, err)
	defer hub.Close()
	store := WithNotifier(flaky.Store, hub)

	rec := &pushRecorder{}
	unsubscribe, err := hub.Subscribe(ctx, "orders", nil, rec.callback)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	_, lastErr := rec.last()
	require.Error(t, lastErr)

	flaky.fail.Store(false)
	_, err = store.Create(ctx, "orders", map[string]any{"storeId": "s1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		docs, err := rec.last()
		return err == nil && len(docs) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubCoalescesBursts(t *testing.T) {
	ctx := context.Background()
	hub, store := newTestHub(t, 40*time.Millisecond)

	rec := &pushRecorder{}
	unsubscribe, err := hub.Subscribe(ctx, "orders", nil, rec.callback)
	require.NoError(t, err)
	defer unsubscribe()
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 20; i++ {
		_, err := store.Create(ctx, "orders", map[string]any{"n": i})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		docs, _ := rec.last()
		return len(docs) == 20
	}, 2*time.Second, 10*time.Millisecond)
	assert.Less(t, rec.count(), 21, "bursts must coalesce")
}

func TestHubClose(t *testing.T) {
	hub, err := NewHub(NewMemoryStore(), 0, nil)
	require.NoError(t, err)

	rec := &pushRecorder{}
	_, err = hub.Subscribe(context.Background(), "orders", nil, rec.callback)
	require.NoError(t, err)

	hub.Close()
	assert.Equal(t, 0, hub.Len())

	_, err = hub.Subscribe(context.Background(), "orders", nil, rec.callback)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHubRejectsBadInput(t *testing.T) {
	hub, err := NewHub(NewMemoryStore(), 0, nil)
	require.NoError(t, err)
	defer hub.Close()

	_, err = hub.Subscribe(context.Background(), "orders", nil, nil)
	assert.Error(t, err)

	_, err = hub.Subscribe(context.Background(), "orders", []Filter{Eq("", "x")}, func([]Document, error) {})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = NewHub(nil, 0, nil)
	assert.Error(t, err)
}
