package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	SubscriptionsCreated  uint64
	SubscriptionsExisting uint64
	SubscriptionsDeleted  uint64
	TokensCreated         uint64
	TokensRefreshed       uint64
	TokensUnchanged       uint64
	TokensDeleted         uint64
	TokenCacheHits        uint64
	TokenCacheMisses      uint64
	TokenLookupCount      uint64
	TokenLookupTotalNs    int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	subscriptionsCreated  uint64
	subscriptionsExisting uint64
	subscriptionsDeleted  uint64
	tokensCreated         uint64
	tokensRefreshed       uint64
	tokensUnchanged       uint64
	tokensDeleted         uint64
	tokenCacheHits        uint64
	tokenCacheMisses      uint64
	tokenLookupCount      uint64
	tokenLookupTotalNs    int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		SubscriptionsCreated:  atomic.LoadUint64(&m.subscriptionsCreated),
		SubscriptionsExisting: atomic.LoadUint64(&m.subscriptionsExisting),
		SubscriptionsDeleted:  atomic.LoadUint64(&m.subscriptionsDeleted),
		TokensCreated:         atomic.LoadUint64(&m.tokensCreated),
		TokensRefreshed:       atomic.LoadUint64(&m.tokensRefreshed),
		TokensUnchanged:       atomic.LoadUint64(&m.tokensUnchanged),
		TokensDeleted:         atomic.LoadUint64(&m.tokensDeleted),
		TokenCacheHits:        atomic.LoadUint64(&m.tokenCacheHits),
		TokenCacheMisses:      atomic.LoadUint64(&m.tokenCacheMisses),
		TokenLookupCount:      atomic.LoadUint64(&m.tokenLookupCount),
		TokenLookupTotalNs:    atomic.LoadInt64(&m.tokenLookupTotalNs),
	}
}

// IncSubscriptionCreated increments the created subscriptions counter.
func (m *InMemoryRecorder) IncSubscriptionCreated() {
	atomic.AddUint64(&m.subscriptionsCreated, 1)
}

// IncSubscriptionExisting increments the idempotent subscribe counter.
func (m *InMemoryRecorder) IncSubscriptionExisting() {
	atomic.AddUint64(&m.subscriptionsExisting, 1)
}

// IncSubscriptionDeleted increments the deleted subscriptions counter.
func (m *InMemoryRecorder) IncSubscriptionDeleted() {
	atomic.AddUint64(&m.subscriptionsDeleted, 1)
}

// IncTokenIssued increments the counter for the given outcome.
func (m *InMemoryRecorder) IncTokenIssued(outcome string) {
	switch outcome {
	case OutcomeCreated:
		atomic.AddUint64(&m.tokensCreated, 1)
	case OutcomeRefreshed:
		atomic.AddUint64(&m.tokensRefreshed, 1)
	default:
		atomic.AddUint64(&m.tokensUnchanged, 1)
	}
}

// IncTokenDeleted increments the deleted tokens counter.
func (m *InMemoryRecorder) IncTokenDeleted() {
	atomic.AddUint64(&m.tokensDeleted, 1)
}

// IncTokenCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncTokenCacheHit() {
	atomic.AddUint64(&m.tokenCacheHits, 1)
}

// IncTokenCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncTokenCacheMiss() {
	atomic.AddUint64(&m.tokenCacheMisses, 1)
}

// ObserveTokenLookupDuration records token lookup duration.
func (m *InMemoryRecorder) ObserveTokenLookupDuration(duration time.Duration) {
	atomic.AddUint64(&m.tokenLookupCount, 1)
	atomic.AddInt64(&m.tokenLookupTotalNs, duration.Nanoseconds())
}
