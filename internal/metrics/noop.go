package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncSubscriptionCreated is a no-op.
func (n *NoopRecorder) IncSubscriptionCreated() {}

// IncSubscriptionExisting is a no-op.
func (n *NoopRecorder) IncSubscriptionExisting() {}

// IncSubscriptionDeleted is a no-op.
func (n *NoopRecorder) IncSubscriptionDeleted() {}

// IncTokenIssued is a no-op.
func (n *NoopRecorder) IncTokenIssued(outcome string) {}

// IncTokenDeleted is a no-op.
func (n *NoopRecorder) IncTokenDeleted() {}

// IncTokenCacheHit is a no-op.
func (n *NoopRecorder) IncTokenCacheHit() {}

// IncTokenCacheMiss is a no-op.
func (n *NoopRecorder) IncTokenCacheMiss() {}

// ObserveTokenLookupDuration is a no-op.
func (n *NoopRecorder) ObserveTokenLookupDuration(duration time.Duration) {}
