package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Assignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autoassist",
		Name:      "assignments_total",
		Help:      "Committed assignment decisions by policy.",
	}, []string{"policy"})

	OracleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autoassist",
		Name:      "oracle_failures_total",
		Help:      "Ranking oracle calls that failed or returned an invalid pick.",
	}, []string{"path"})

	BatchRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autoassist",
		Name:      "batch_runs_total",
		Help:      "Bulk assignment runs started.",
	})

	BatchUnassigned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autoassist",
		Name:      "batch_unassigned_total",
		Help:      "Requests a bulk run could not place.",
	})
)
