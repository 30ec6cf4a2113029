package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"

// Metrics is an Observer that records run and transition metrics.
type Metrics struct {
	runs        metric.Int64Counter
	transitions metric.Int64Counter
	duration    metric.Float64Histogram
	iterations  metric.Int64Histogram
	active      metric.Int64UpDownCounter
}

// NewMetrics creates the workflow instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.runs, err = meter.Int64Counter(
		"genagent.workflow.runs",
		metric.WithDescription("Finished runs by terminal status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}

	m.transitions, err = meter.Int64Counter(
		"genagent.workflow.transitions",
		metric.WithDescription("Committed state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"genagent.workflow.run.duration",
		metric.WithDescription("Wall-clock duration of runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	m.iterations, err = meter.Int64Histogram(
		"genagent.workflow.run.iterations",
		metric.WithDescription("Iterations consumed per run"),
		metric.WithUnit("{iteration}"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 15, 20, 25, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iterations histogram: %w", err)
	}

	m.active, err = meter.Int64UpDownCounter(
		"genagent.workflow.runs.active",
		metric.WithDescription("Runs currently in progress"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}
	return m, nil
}

func (m *Metrics) OnStart(ctx context.Context, _, _ string) {
	m.active.Add(ctx, 1)
}

func (m *Metrics) OnTransition(ctx context.Context, t Transition, _ *RunState) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(t.From)),
		attribute.String("to", string(t.To)),
	))
}

func (m *Metrics) OnFinish(ctx context.Context, r *Report) {
	status := metric.WithAttributes(attribute.String("status", string(r.Status)))
	m.active.Add(ctx, -1)
	m.runs.Add(ctx, 1, status)
	m.duration.Record(ctx, r.Duration.Seconds(), status)
	m.iterations.Record(ctx, int64(r.Iterations), status)
}
