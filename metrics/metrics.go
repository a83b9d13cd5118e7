// Package metrics holds the Prometheus collectors shared by the quoting
// pipeline. They are served by the rpc package's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuoteFetches counts quote requests by outcome: success, error, superseded.
	QuoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swapquote",
		Name:      "quote_fetches_total",
		Help:      "Quote fetch attempts by outcome.",
	}, []string{"outcome"})

	// StaleBlocksRejected counts quotes discarded by the block-validity filter.
	StaleBlocksRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swapquote",
		Name:      "stale_blocks_rejected_total",
		Help:      "Quotes discarded because their block was no longer valid.",
	})

	// ActiveSessions tracks live quote sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swapquote",
		Name:      "active_sessions",
		Help:      "Number of live quote sessions.",
	})
)
