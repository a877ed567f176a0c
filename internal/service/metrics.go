package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	viewBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_view_builds_total",
			Help: "Conversation view computations by result",
		},
		[]string{"result"}, // ok, partial, stale, error
	)

	viewBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "social_view_build_duration_seconds",
			Help:    "Time spent building a conversation view",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	viewSkippedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "social_view_skipped_entries_total",
			Help: "Conversation view entries dropped because a lookup failed",
		},
	)

	friendOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_friend_operations_total",
			Help: "Friend graph operations by operation and result",
		},
		[]string{"op", "result"},
	)

	inconsistentPairsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "social_inconsistent_friend_pairs_total",
			Help: "Friend pairs found with only one side recorded",
		},
	)

	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_messages_sent_total",
			Help: "Messages appended, split by whether the conversation was created",
		},
		[]string{"first_contact"},
	)

	liveSyncDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_livesync_deliveries_total",
			Help: "Live view recomputations by outcome",
		},
		[]string{"outcome"}, // delivered, out_of_order, failed
	)

	liveSyncCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "social_livesync_reruns_total",
			Help: "Live view reruns that absorbed changes arriving during a recomputation",
		},
	)

	liveSyncWatchers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "social_livesync_watchers",
			Help: "Number of active live view watchers",
		},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
