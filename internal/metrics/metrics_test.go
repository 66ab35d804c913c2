package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ Recorder = (*NoopRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncSubscriptionCreated()
	m.IncSubscriptionExisting()
	m.IncSubscriptionExisting()
	m.IncSubscriptionDeleted()
	m.IncTokenIssued(OutcomeCreated)
	m.IncTokenIssued(OutcomeRefreshed)
	m.IncTokenIssued(OutcomeUnchanged)
	m.IncTokenIssued(OutcomeUnchanged)
	m.IncTokenDeleted()
	m.IncTokenCacheHit()
	m.IncTokenCacheMiss()
	m.ObserveTokenLookupDuration(2 * time.Millisecond)

	snap := m.Snapshot()

	if snap.SubscriptionsCreated != 1 || snap.SubscriptionsExisting != 2 || snap.SubscriptionsDeleted != 1 {
		t.Errorf("unexpected subscription counters: %+v", snap)
	}
	if snap.TokensCreated != 1 || snap.TokensRefreshed != 1 || snap.TokensUnchanged != 2 || snap.TokensDeleted != 1 {
		t.Errorf("unexpected token counters: %+v", snap)
	}
	if snap.TokenCacheHits != 1 || snap.TokenCacheMisses != 1 {
		t.Errorf("unexpected cache counters: %+v", snap)
	}
	if snap.TokenLookupCount != 1 || snap.TokenLookupTotalNs != int64(2*time.Millisecond) {
		t.Errorf("unexpected lookup counters: %+v", snap)
	}
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewPrometheus(registry)
	if err != nil {
		t.Fatalf("NewPrometheus failed: %v", err)
	}

	m.IncSubscriptionCreated()
	m.IncSubscriptionExisting()
	m.IncTokenIssued(OutcomeRefreshed)
	m.IncTokenIssued(OutcomeRefreshed)
	m.IncTokenDeleted()
	m.IncTokenCacheMiss()
	m.ObserveTokenLookupDuration(time.Millisecond)

	if got := testutil.ToFloat64(m.subscriptionsTotal.WithLabelValues("created")); got != 1 {
		t.Errorf("subscriptions created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.subscriptionsTotal.WithLabelValues("existing")); got != 1 {
		t.Errorf("subscriptions existing = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.tokensTotal.WithLabelValues(OutcomeRefreshed)); got != 2 {
		t.Errorf("tokens refreshed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.tokensTotal.WithLabelValues("deleted")); got != 1 {
		t.Errorf("tokens deleted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.tokenCacheTotal.WithLabelValues("miss")); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.tokenLookup); got != 1 {
		t.Errorf("lookup histogram series = %d, want 1", got)
	}
}

func TestPrometheusRecorder_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	if _, err := NewPrometheus(registry); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewPrometheus(registry); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}
