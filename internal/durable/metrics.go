package durable

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/durable"

var (
	metricsOnce       sync.Once
	executionCounter  metric.Int64Counter
	executionDuration metric.Float64Histogram
)

// initMetrics creates the instruments on first use, after telemetry has set
// the global meter provider. Instruments that fail to register stay nil.
func initMetrics() {
	meter := otel.Meter(instrumentationName)

	executionCounter, _ = meter.Int64Counter(
		"genagent.durable.goal_executions",
		metric.WithDescription("Goal activity executions by outcome"),
		metric.WithUnit("{execution}"),
	)

	executionDuration, _ = meter.Float64Histogram(
		"genagent.durable.goal_duration",
		metric.WithDescription("Duration of goal activity executions"),
		metric.WithUnit("s"),
	)
}

func recordExecution(ctx context.Context, outcome string, d time.Duration) {
	metricsOnce.Do(initMetrics)
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if executionCounter != nil {
		executionCounter.Add(ctx, 1, attrs)
	}
	if executionDuration != nil {
		executionDuration.Record(ctx, d.Seconds(), attrs)
	}
}
