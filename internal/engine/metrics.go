package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_turns_total",
			Help: "Total conversation turns handled",
		},
		[]string{"outcome"},
	)

	interruptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_interrupts_total",
			Help: "Total mid-flow interrupts by kind",
		},
		[]string{"kind"},
	)

	clarificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_clarifications_total",
			Help: "Total ambiguous entity clarifications requested",
		},
	)

	flowsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_flows_completed_total",
			Help: "Total flows run to completion",
		},
		[]string{"flow_kind"},
	)

	storeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_store_failures_total",
			Help: "Total session store failures surfaced to the caller",
		},
	)
)
