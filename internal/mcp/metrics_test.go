package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_Begin(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"), nil)
	ctx := context.Background()

	m.begin(ctx, "run_goal")(nil)
	m.begin(ctx, "memory_search")(fmt.Errorf("%w: query is required", workflow.ErrInvalidInput))
	pending := m.begin(ctx, "run_goal")

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["genagent.mcp.tool.invocations_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["genagent.mcp.tool.errors_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["genagent.mcp.tool.active_requests"]))
	assert.Contains(t, got, "genagent.mcp.tool.duration_seconds")

	pending(nil)
	got = collect(t, reader)
	assert.Equal(t, int64(0), sumOf(t, got["genagent.mcp.tool.active_requests"]))
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: goal must not be empty", workflow.ErrInvalidInput), "invalid_input"},
		{context.Canceled, "cancelled"},
		{fmt.Errorf("run: %w", context.DeadlineExceeded), "cancelled"},
		{fmt.Errorf("memory search: %w", memory.ErrUnavailable), "memory_unavailable"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, failureReason(tt.err), "%v", tt.err)
	}
}
