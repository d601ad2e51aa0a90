// Package metrics defines the Prometheus collectors for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors so they can be constructor-injected rather
// than registered on a package-global registry.
type Metrics struct {
	BillsCreated  prometheus.Counter
	BillsUpdated  prometheus.Counter
	SyncAttempts  prometheus.Counter
	SyncSuccesses prometheus.Counter
	SyncFailures  prometheus.Counter
	SyncDuration  prometheus.Histogram
}

// New registers the ledger collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BillsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrapbill_bills_created_total",
			Help: "Number of bills saved to the local ledger.",
		}),
		BillsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrapbill_bills_updated_total",
			Help: "Number of bill edits applied to the local ledger.",
		}),
		SyncAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrapbill_sync_attempts_total",
			Help: "Number of per-bill sync attempts.",
		}),
		SyncSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrapbill_sync_successes_total",
			Help: "Number of bills acknowledged by the backend.",
		}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrapbill_sync_failures_total",
			Help: "Number of per-bill sync failures.",
		}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scrapbill_sync_duration_seconds",
			Help:    "Duration of individual bill sync calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
