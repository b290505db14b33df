package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/tagdex/internal/domain/batch"
)

// Tag mutation and integrity sweep metrics.
var (
	TagMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_mutation_items_total",
			Help:      "Items processed by tag mutations, by per-item outcome",
		},
		[]string{"op", "status"},
	)

	SweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_sweeps_total",
			Help:      "Integrity sweeps by result",
		},
		[]string{"result"}, // ok / failed
	)

	SweepRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_repairs_total",
			Help:      "Repairs made by integrity sweeps",
		},
		[]string{"kind"}, // article / ref_set / duplicate / failure
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "integrity_sweep_duration_seconds",
			Help:      "Integrity sweep duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)
)

// MutationRecorder counts per-item outcomes of tag mutations.
type MutationRecorder struct{}

// RecordMutation adds the outcome of every item of one mutation.
func (MutationRecorder) RecordMutation(op string, results []batch.Result) {
	for status, n := range batch.Count(results) {
		TagMutationsTotal.WithLabelValues(op, string(status)).Add(float64(n))
	}
}

// SweepObserver records integrity sweep outcomes.
type SweepObserver struct{}

// ObserveSweep records one sweep run.
func (SweepObserver) ObserveSweep(d time.Duration, articles, refSets, duplicates, failures int, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	SweepRunsTotal.WithLabelValues(result).Inc()
	SweepDuration.Observe(d.Seconds())
	SweepRepairsTotal.WithLabelValues("article").Add(float64(articles))
	SweepRepairsTotal.WithLabelValues("ref_set").Add(float64(refSets))
	SweepRepairsTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	SweepRepairsTotal.WithLabelValues("failure").Add(float64(failures))
}
