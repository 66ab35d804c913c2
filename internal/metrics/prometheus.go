package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder on top of a Prometheus registry.
type PrometheusRecorder struct {
	subscriptionsTotal *prometheus.CounterVec   // by result: created, existing, deleted
	tokensTotal        *prometheus.CounterVec   // by outcome: created, refreshed, unchanged, deleted
	tokenCacheTotal    *prometheus.CounterVec   // by result: hit, miss
	tokenLookup        prometheus.Histogram
}

// NewPrometheus creates the application metrics and registers them with registry.
func NewPrometheus(registry prometheus.Registerer) (*PrometheusRecorder, error) {
	m := &PrometheusRecorder{
		subscriptionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailsub",
				Name:      "subscriptions_total",
				Help:      "Subscription operations by result",
			},
			[]string{"result"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailsub",
				Name:      "tokens_total",
				Help:      "Token operations by outcome",
			},
			[]string{"outcome"},
		),
		tokenCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailsub",
				Name:      "token_cache_lookups_total",
				Help:      "Token cache lookups by result",
			},
			[]string{"result"},
		),
		tokenLookup: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mailsub",
				Name:      "token_lookup_duration_seconds",
				Help:      "Time taken to resolve a token by value",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
	}

	collectors := []prometheus.Collector{
		m.subscriptionsTotal,
		m.tokensTotal,
		m.tokenCacheTotal,
		m.tokenLookup,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// IncSubscriptionCreated increments the created subscriptions counter.
func (m *PrometheusRecorder) IncSubscriptionCreated() {
	m.subscriptionsTotal.WithLabelValues("created").Inc()
}

// IncSubscriptionExisting increments the idempotent subscribe counter.
func (m *PrometheusRecorder) IncSubscriptionExisting() {
	m.subscriptionsTotal.WithLabelValues("existing").Inc()
}

// IncSubscriptionDeleted increments the deleted subscriptions counter.
func (m *PrometheusRecorder) IncSubscriptionDeleted() {
	m.subscriptionsTotal.WithLabelValues("deleted").Inc()
}

// IncTokenIssued increments the token counter for outcome.
func (m *PrometheusRecorder) IncTokenIssued(outcome string) {
	m.tokensTotal.WithLabelValues(outcome).Inc()
}

// IncTokenDeleted increments the deleted tokens counter.
func (m *PrometheusRecorder) IncTokenDeleted() {
	m.tokensTotal.WithLabelValues("deleted").Inc()
}

// IncTokenCacheHit increments the cache hit counter.
func (m *PrometheusRecorder) IncTokenCacheHit() {
	m.tokenCacheTotal.WithLabelValues("hit").Inc()
}

// IncTokenCacheMiss increments the cache miss counter.
func (m *PrometheusRecorder) IncTokenCacheMiss() {
	m.tokenCacheTotal.WithLabelValues("miss").Inc()
}

// ObserveTokenLookupDuration records token lookup duration.
func (m *PrometheusRecorder) ObserveTokenLookupDuration(duration time.Duration) {
	m.tokenLookup.Observe(duration.Seconds())
}
