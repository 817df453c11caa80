package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	authFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "auth",
		Name:      "failures_total",
		Help:      "Authentication failures partitioned by reason.",
	}, []string{"reason"})
	workoutMutationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "aggregate",
		Name:      "mutations_total",
		Help:      "Structural mutations applied to workout aggregates.",
	}, []string{"operation"})
	reorderRejectionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "aggregate",
		Name:      "reorder_rejections_total",
		Help:      "Reorder maps rejected during validation, by violated rule.",
	}, []string{"rule"})
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workoutlog",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout aggregate persisted.",
	})
)

func init() {
	prometheus.MustRegister(authFailureCounter, workoutMutationCounter, reorderRejectionCounter, workoutPersistGauge)
}

// RecordAuthFailure counts a rejected authentication attempt.
func RecordAuthFailure(reason string) {
	authFailureCounter.WithLabelValues(reason).Inc()
}

// RecordWorkoutMutation counts a committed aggregate mutation.
func RecordWorkoutMutation(operation string) {
	workoutMutationCounter.WithLabelValues(operation).Inc()
}

// RecordReorderRejection counts a rejected reorder map.
func RecordReorderRejection(rule string) {
	reorderRejectionCounter.WithLabelValues(rule).Inc()
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}
