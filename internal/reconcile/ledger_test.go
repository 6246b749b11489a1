package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-process stand-in for the redis idempotency store.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]string

	setNXErr error
	delErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]string{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if m.setNXErr != nil {
		return false, m.setNXErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.entries[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("rsd:idempotency:%s:%s", scope, id)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	if m.delErr != nil {
		return m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func TestLedgerRecordIfNew(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(store, time.Hour)
	ctx := context.Background()

	first, err := ledger.RecordIfNew(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := ledger.RecordIfNew(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, second)

	other, err := ledger.RecordIfNew(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestLedgerRecordIfNewConcurrent(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(store, time.Hour)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := ledger.RecordIfNew(context.Background(), "evt_race")
			require.NoError(t, err)
			results <- fresh
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for fresh := range results {
		if fresh {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestLedgerForget(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(store, time.Hour)
	ctx := context.Background()

	_, err := ledger.RecordIfNew(ctx, "evt_1")
	require.NoError(t, err)
	require.NoError(t, ledger.Forget(ctx, "evt_1"))

	fresh, err := ledger.RecordIfNew(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestLedgerPropagatesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.setNXErr = errors.New("redis down")
	ledger := NewLedger(store, time.Hour)

	_, err := ledger.RecordIfNew(context.Background(), "evt_1")
	require.Error(t, err)

	store.setNXErr = nil
	store.delErr = errors.New("redis down")
	require.Error(t, ledger.Forget(context.Background(), "evt_1"))
}
