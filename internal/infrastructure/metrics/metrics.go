package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the sync engine. A single
// instance is shared between the scheduled runner and the manual trigger.
type Metrics struct {
	SyncRecords    *prometheus.CounterVec
	Overrides      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	IngestMessages *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SyncRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callsync",
			Name:      "sync_records_total",
			Help:      "Call records processed by the sync engine, by category and outcome.",
		}, []string{"category", "outcome"}),

		Overrides: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callsync",
			Name:      "platform_overrides_total",
			Help:      "Payment override requests issued to the billing platform, by result.",
		}, []string{"result"}),

		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "callsync",
			Name:      "sync_run_duration_seconds",
			Help:      "Wall-clock duration of one bounded sync batch.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),

		IngestMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callsync",
			Name:      "ingest_messages_total",
			Help:      "Ingest batches consumed from the scraper, by kind and result.",
		}, []string{"kind", "result"}),
	}
}
