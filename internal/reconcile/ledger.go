package reconcile

import (
	"context"
	"time"

	"github.com/rogermolina/residencia-backend/pkg/redis"
)

// ledgerScope namespaces gateway event ids inside the idempotency keyspace.
const ledgerScope = "stripe-events"

const recordedValue = "1"

// Ledger remembers which gateway events have already been handed to the
// reconciler. First-seen checks are a single SETNX so concurrent deliveries
// of the same event resolve to exactly one winner.
type Ledger struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewLedger builds an event ledger with the given retention window.
func NewLedger(store redis.IdempotencyStore, ttl time.Duration) *Ledger {
	return &Ledger{store: store, ttl: ttl}
}

// RecordIfNew atomically records the event id and reports whether this call
// was the first to see it. A false return means some other delivery already
// claimed the event.
func (l *Ledger) RecordIfNew(ctx context.Context, eventID string) (bool, error) {
	key := l.store.IdempotencyKey(ledgerScope, eventID)
	return l.store.SetNX(ctx, key, recordedValue, l.ttl)
}

// Forget drops the event id so a redelivery gets a second chance. Used when
// processing failed for infrastructure reasons after the entry was claimed.
func (l *Ledger) Forget(ctx context.Context, eventID string) error {
	key := l.store.IdempotencyKey(ledgerScope, eventID)
	return l.store.Del(ctx, key)
}
