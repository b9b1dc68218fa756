// Package metrics holds the prometheus collectors for the delivery pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Emails partitioned by dispatch result (sent, failed)
	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmvmail_emails_total",
			Help: "Total number of campaign emails dispatched, by result",
		},
		[]string{"result"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dmvmail_batch_duration_seconds",
			Help:    "Time to settle one dispatch batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Finished processing passes partitioned by final campaign status
	CampaignPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmvmail_campaign_passes_total",
			Help: "Total number of campaign processing passes, by final status",
		},
		[]string{"status"},
	)

	LedgerWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dmvmail_ledger_write_failures_total",
			Help: "Ledger inserts that failed and were downgraded or dropped",
		},
	)
)
