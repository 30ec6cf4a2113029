package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const instrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/mcp"

// Metrics counts MCP tool calls. Instruments that fail to register are
// replaced by no-ops.
type Metrics struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

// NewMetrics registers the instruments on meter, or on the global meter
// provider when meter is nil.
func NewMetrics(meter metric.Meter, logger *logging.Logger) *Metrics {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	warn := func(name string, err error) {
		logger.Warn(context.Background(), "mcp instrument unavailable", zap.String("instrument", name), zap.Error(err))
	}

	m := &Metrics{}
	var err error
	if m.calls, err = meter.Int64Counter("genagent.mcp.tool.invocations_total",
		metric.WithDescription("MCP tool calls by tool"), metric.WithUnit("{call}")); err != nil {
		warn("invocations_total", err)
		m.calls = noop.Int64Counter{}
	}
	if m.failures, err = meter.Int64Counter("genagent.mcp.tool.errors_total",
		metric.WithDescription("MCP tool calls that returned a protocol error, by tool and reason"), metric.WithUnit("{call}")); err != nil {
		warn("errors_total", err)
		m.failures = noop.Int64Counter{}
	}
	if m.latency, err = meter.Float64Histogram("genagent.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool call latency; run_goal covers the whole run"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120, 300)); err != nil {
		warn("duration_seconds", err)
		m.latency = noop.Float64Histogram{}
	}
	if m.inflight, err = meter.Int64UpDownCounter("genagent.mcp.tool.active_requests",
		metric.WithDescription("MCP tool calls in progress"), metric.WithUnit("{call}")); err != nil {
		warn("active_requests", err)
		m.inflight = noop.Int64UpDownCounter{}
	}
	return m
}

// begin marks a call to tool as in flight. The returned func records its
// outcome and must be called exactly once.
func (m *Metrics) begin(ctx context.Context, tool string) func(err error) {
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.inflight.Add(ctx, 1, attrs)
	return func(err error) {
		m.inflight.Add(ctx, -1, attrs)
		m.calls.Add(ctx, 1, attrs)
		m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
		if err != nil {
			m.failures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", tool),
				attribute.String("reason", failureReason(err)),
			))
		}
	}
}

// failureReason buckets tool errors for the errors_total label.
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, workflow.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, workflow.ErrCancelled):
		return "cancelled"
	case errors.Is(err, memory.ErrUnavailable):
		return "memory_unavailable"
	default:
		return "internal"
	}
}
