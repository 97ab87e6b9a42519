package pkg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_votes_cast_total",
		Help: "Committed vote transactions by action",
	}, []string{"action"})

	MembershipChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_membership_changes_total",
		Help: "Committed join/leave transactions by action",
	}, []string{"action"})

	CommunitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_created_total",
		Help: "Communities created by path (direct or request)",
	}, []string{"path"})

	LedgerRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "community_ledger_retries_total",
		Help: "Ledger transactions retried after a stale optimistic read",
	})

	LedgerConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "community_ledger_conflicts_total",
		Help: "Ledger transactions that exhausted their retry budget",
	})

	OutboxDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_outbox_deliveries_total",
		Help: "Outbox rows relayed by result",
	}, []string{"status"})

	CounterRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_counter_repairs_total",
		Help: "Denormalised counters repaired by the reconciler",
	}, []string{"counter"})
)
