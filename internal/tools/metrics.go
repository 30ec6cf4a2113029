package tools

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal counts tool calls.
	// Labels: tool, outcome (success, limit, error)
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genagent",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Total number of tool calls by outcome",
		},
		[]string{"tool", "outcome"},
	)

	// CallDuration tracks tool call latency.
	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "genagent",
			Subsystem: "tools",
			Name:      "call_duration_seconds",
			Help:      "Duration of tool calls in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"tool"},
	)
)

func outcomeLabel(res Result) string {
	switch {
	case res.Success:
		return "success"
	case errors.Is(res.Err, ErrToolLimit):
		return "limit"
	default:
		return "error"
	}
}

func observeCall(tool string, res Result) {
	CallsTotal.WithLabelValues(tool, outcomeLabel(res)).Inc()
	CallDuration.WithLabelValues(tool).Observe(res.Duration.Seconds())
}
