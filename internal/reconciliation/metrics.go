package reconciliation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chargesInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "susubox_charges_initiated_total",
		Help: "Contribution charges submitted to payment providers.",
	}, []string{"provider", "outcome"})

	webhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "susubox_webhooks_received_total",
		Help: "Inbound provider webhooks by verification outcome.",
	}, []string{"provider", "outcome"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "susubox_status_transitions_total",
		Help: "Transaction status transitions applied by reconcilers.",
	}, []string{"type", "status", "source"})

	sweepOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "susubox_verify_sweep_outcomes_total",
		Help: "Per-transaction outcomes of the pending verification sweep.",
	}, []string{"outcome"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "susubox_verify_sweep_duration_seconds",
		Help:    "Wall time of one pending verification sweep.",
		Buckets: prometheus.DefBuckets,
	})
)
