package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	structureImports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "structure",
		Subsystem: "import",
		Name:      "total",
		Help:      "Total number of manifest imports broken down by outcome.",
	}, []string{"outcome"})

	structureNodeActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "structure",
		Subsystem: "import",
		Name:      "node_actions_total",
		Help:      "Total number of reconciled manifest nodes broken down by kind and action.",
	}, []string{"kind", "action"})

	structureImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "structure",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Time spent reading and reconciling one manifest.",
		Buckets:   prometheus.DefBuckets,
	})

	structureVersions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "structure",
		Subsystem: "version",
		Name:      "created_total",
		Help:      "Total number of structure versions released.",
	})
)

func recordImport(res *ImportResult, err error, started time.Time) {
	structureImportDuration.Observe(time.Since(started).Seconds())
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(res.FileErrors) > 0:
		outcome = "file_error"
	case len(res.Errors) > 0:
		outcome = "partial"
	}
	structureImports.WithLabelValues(outcome).Inc()
	if res == nil || err != nil {
		return
	}
	for _, c := range res.Changes {
		structureNodeActions.WithLabelValues(string(c.Kind), string(c.Action)).Inc()
	}
}
