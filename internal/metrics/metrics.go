// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Token issue outcomes used as metric labels.
const (
	OutcomeCreated   = "created"
	OutcomeRefreshed = "refreshed"
	OutcomeUnchanged = "unchanged"
)

// Recorder captures metric events for the application.
// Implementations include a no-op, an in-memory recorder for tests and a
// Prometheus-backed recorder.
type Recorder interface {
	// Subscription metrics
	IncSubscriptionCreated()
	IncSubscriptionExisting()
	IncSubscriptionDeleted()

	// Token metrics
	IncTokenIssued(outcome string) // outcome: "created", "refreshed", "unchanged"
	IncTokenDeleted()

	// Token lookup metrics
	IncTokenCacheHit()
	IncTokenCacheMiss()
	ObserveTokenLookupDuration(duration time.Duration)
}
