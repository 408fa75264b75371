package cache

import (
	"context"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheOperationsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetbundler",
			Subsystem: "cache",
			Name:      "operations_started_total",
			Help:      "Total number of operations started on cache backends.",
		},
		[]string{"name", "operation"})
	cacheOperationsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assetbundler",
			Subsystem: "cache",
			Name:      "operations_duration_seconds",
			Help:      "Amount of time spent per operation on cache backends, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, math.Pow(10.0, 1.0/3.0), 6*3+1),
		},
		[]string{"name", "operation"})
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetbundler",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by result.",
		},
		[]string{"name", "result"})
)

func init() {
	prometheus.MustRegister(cacheOperationsStartedTotal)
	prometheus.MustRegister(cacheOperationsDurationSeconds)
	prometheus.MustRegister(cacheLookupsTotal)
}

type metricsBackend struct {
	backend Backend
	name    string
}

// NewMetricsBackend wraps backend with Prometheus instrumentation labelled
// by name.
func NewMetricsBackend(backend Backend, name string) Backend {
	return &metricsBackend{backend: backend, name: name}
}

func (b *metricsBackend) Get(ctx context.Context, key Key) ([]byte, bool) {
	cacheOperationsStartedTotal.WithLabelValues(b.name, "Get").Inc()
	timeStart := time.Now()
	data, ok := b.backend.Get(ctx, key)
	cacheOperationsDurationSeconds.WithLabelValues(b.name, "Get").Observe(time.Since(timeStart).Seconds())
	if ok {
		cacheLookupsTotal.WithLabelValues(b.name, "hit").Inc()
	} else {
		cacheLookupsTotal.WithLabelValues(b.name, "miss").Inc()
	}
	return data, ok
}

func (b *metricsBackend) Put(ctx context.Context, key Key, data []byte) bool {
	cacheOperationsStartedTotal.WithLabelValues(b.name, "Put").Inc()
	timeStart := time.Now()
	ok := b.backend.Put(ctx, key, data)
	cacheOperationsDurationSeconds.WithLabelValues(b.name, "Put").Observe(time.Since(timeStart).Seconds())
	return ok
}

func (b *metricsBackend) Contains(ctx context.Context, key Key) bool {
	cacheOperationsStartedTotal.WithLabelValues(b.name, "Contains").Inc()
	timeStart := time.Now()
	ok := b.backend.Contains(ctx, key)
	cacheOperationsDurationSeconds.WithLabelValues(b.name, "Contains").Observe(time.Since(timeStart).Seconds())
	return ok
}
