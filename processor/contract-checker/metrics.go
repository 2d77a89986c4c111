package contractchecker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contractspec",
		Subsystem: "checker",
		Name:      "runs_total",
		Help:      "Contract check runs by outcome.",
	}, []string{"outcome"})

	elementsChecked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contractspec",
		Subsystem: "checker",
		Name:      "elements_checked_total",
		Help:      "Elements that went through the validation pipeline.",
	})

	diagnosticsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contractspec",
		Subsystem: "checker",
		Name:      "diagnostics_total",
		Help:      "Diagnostics emitted by code.",
	}, []string{"code"})

	docsRegenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contractspec",
		Subsystem: "checker",
		Name:      "docs_regenerated_total",
		Help:      "Elements whose documentation was regenerated.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "contractspec",
		Subsystem: "checker",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of one contract check run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
