package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
)

// Store command metrics.
var (
	StoreCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_command_duration_seconds",
			Help:      "Store command attempt duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op"},
	)

	StoreCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_commands_total",
			Help:      "Total store commands by outcome",
		},
		[]string{"op", "result"}, // ok / nil / server_error / transport_error
	)

	StoreRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Store command retries after transient failures",
		},
		[]string{"op"},
	)
)

var registerOnce sync.Once

// Register registers the store, mutation and sweep metrics. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			StoreCommandDuration,
			StoreCommandsTotal,
			StoreRetriesTotal,
			TagMutationsTotal,
			SweepRunsTotal,
			SweepRepairsTotal,
			SweepDuration,
		)
	})
}

// StoreObserver records per-command telemetry of the database store.
type StoreObserver struct{}

// ObserveCommand records one command and its outcome.
func (StoreObserver) ObserveCommand(op string, d time.Duration, err error) {
	StoreCommandDuration.WithLabelValues(op).Observe(d.Seconds())
	StoreCommandsTotal.WithLabelValues(op, commandResult(err)).Inc()
}

// ObserveRetry records a retry of op.
func (StoreObserver) ObserveRetry(op string) {
	StoreRetriesTotal.WithLabelValues(op).Inc()
}

func commandResult(err error) string {
	if err == nil {
		return "ok"
	}
	if rueidis.IsRedisNil(err) {
		return "nil"
	}
	if _, ok := rueidis.IsRedisErr(err); ok {
		return "server_error"
	}
	return "transport_error"
}
