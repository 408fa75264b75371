package engine

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	taskCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetbundler",
			Subsystem: "engine",
			Name:      "task_completions_total",
			Help:      "Total number of tasks that reached a final state.",
		},
		[]string{"state", "cached"})
	compileDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assetbundler",
			Subsystem: "engine",
			Name:      "compile_duration_seconds",
			Help:      "Amount of time spent in compilers, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, math.Pow(10.0, 1.0/3.0), 6*3+1),
		},
		[]string{"compiler"})
)

func init() {
	prometheus.MustRegister(taskCompletionsTotal)
	prometheus.MustRegister(compileDurationSeconds)
}
