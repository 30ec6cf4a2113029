package memory

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genagent",
		Subsystem: "memory",
		Name:      "operations_total",
		Help:      "Memory store operations by kind and result.",
	}, []string{"op", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "genagent",
		Subsystem: "memory",
		Name:      "operation_duration_seconds",
		Help:      "Latency of memory store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	redactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "genagent",
		Subsystem: "memory",
		Name:      "redactions_total",
		Help:      "Records that had secrets redacted before being written.",
	})
)

func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(op, result).Inc()
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
